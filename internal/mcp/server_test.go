package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/paperdock/paperdock/internal/config"
	"github.com/paperdock/paperdock/internal/storage"
	"github.com/paperdock/paperdock/internal/studio"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:          "stdio",
		Host:          "127.0.0.1",
		Port:          8080,
		DataDirectory: "/tmp",
		Version:       "1.0.0",
		ServerName:    "test-server",
		LogLevel:      "info",
		MaxFileSize:   1024 * 1024,
	}
}

func testStudio(t *testing.T) *studio.Service {
	t.Helper()
	fsys, err := mem.NewFS()
	if err != nil {
		t.Fatalf("failed to create mem fs: %v", err)
	}
	return studio.NewService(storage.New(fsys, "data"))
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	svc := testStudio(t)

	tests := []struct {
		name        string
		config      *config.Config
		service     *studio.Service
		expectError bool
	}{
		{
			name:        "valid stdio mode config",
			config:      testConfig(),
			service:     svc,
			expectError: false,
		},
		{
			name: "valid server mode config",
			config: func() *config.Config {
				cfg := testConfig()
				cfg.Mode = "server"
				return cfg
			}(),
			service:     svc,
			expectError: false,
		},
		{
			name:        "nil studio service",
			config:      testConfig(),
			service:     nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, tt.service)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.expectError {
				if server == nil {
					t.Fatal("server should not be nil")
				}
				if server.config != tt.config {
					t.Error("server config not set correctly")
				}
				if server.studio != tt.service {
					t.Error("server studio service not set correctly")
				}
				if server.mcpServer == nil {
					t.Error("mcpServer should be initialized")
				}
			}
		})
	}
}

func TestServer_HandleProjectLifecycle(t *testing.T) {
	server, err := NewServer(testConfig(), testStudio(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ctx := context.Background()

	// Create
	result, err := server.handleProjectCreate(ctx, callRequest(map[string]interface{}{"name": "trial-A"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text := extractTextFromResult(result)
	if !strings.Contains(text, `Created project "trial-A"`) {
		t.Errorf("expected creation confirmation, got: %s", text)
	}
	if !strings.Contains(text, "* trial-A") {
		t.Errorf("new project should be active, got: %s", text)
	}

	// Duplicate create is an error result
	result, err = server.handleProjectCreate(ctx, callRequest(map[string]interface{}{"name": "trial-A"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("duplicate create should produce an error result")
	}

	// Switch back to default
	result, err = server.handleProjectSwitch(ctx, callRequest(map[string]interface{}{"name": "default"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), "Active project: default") {
		t.Errorf("expected switch confirmation, got: %s", extractTextFromResult(result))
	}

	// List shows both projects
	result, err = server.handleProjectList(ctx, callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text = extractTextFromResult(result)
	if !strings.Contains(text, "2 project(s)") || !strings.Contains(text, "* default") {
		t.Errorf("unexpected project list: %s", text)
	}

	// Delete
	result, err = server.handleProjectDelete(ctx, callRequest(map[string]interface{}{"name": "trial-A"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), `Deleted project "trial-A"`) {
		t.Errorf("expected deletion confirmation, got: %s", extractTextFromResult(result))
	}

	// Deleting the default project is refused
	result, err = server.handleProjectDelete(ctx, callRequest(map[string]interface{}{"name": "default"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("deleting the default project should produce an error result")
	}
}

func TestServer_HandleFieldSetAndGet(t *testing.T) {
	server, err := NewServer(testConfig(), testStudio(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ctx := context.Background()

	result, err := server.handleFieldSet(ctx, callRequest(map[string]interface{}{
		"field_id": "study_id",
		"value":    "10.1/x",
		"page":     float64(1),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), "Stored 1:study_id") {
		t.Errorf("expected stored confirmation, got: %s", extractTextFromResult(result))
	}

	result, err = server.handleFieldGet(ctx, callRequest(map[string]interface{}{
		"field_id": "study_id",
		"page":     float64(1),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), "1:study_id = 10.1/x") {
		t.Errorf("expected stored value, got: %s", extractTextFromResult(result))
	}

	// Reading a field that was never set
	result, err = server.handleFieldGet(ctx, callRequest(map[string]interface{}{
		"field_id": "missing",
		"page":     float64(1),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), "is empty") {
		t.Errorf("expected empty-field message, got: %s", extractTextFromResult(result))
	}

	// Page fields listing
	result, err = server.handlePageFields(ctx, callRequest(map[string]interface{}{"page": float64(1)}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), "study_id = 10.1/x") {
		t.Errorf("expected page listing, got: %s", extractTextFromResult(result))
	}

	// Both scopes at once is rejected
	result, err = server.handleFieldSet(ctx, callRequest(map[string]interface{}{
		"field_id": "f",
		"value":    "v",
		"page":     float64(1),
		"section":  "I",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("setting both page and section should produce an error result")
	}
}

func TestServer_HandleSchemaTools(t *testing.T) {
	server, err := NewServer(testConfig(), testStudio(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ctx := context.Background()

	const document = `{
		"version": "1",
		"sections": [{
			"id": "I",
			"label": "Identification",
			"fields": [
				{"id": "studyType", "label": "Study type", "type": "select",
				 "required": true, "options": ["RCT", "Cohort"]}
			]
		}]
	}`

	result, err := server.handleSchemaLoad(ctx, callRequest(map[string]interface{}{"document": document}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text := extractTextFromResult(result)
	if !strings.Contains(text, "Loaded schema version 1") || !strings.Contains(text, "I.studyType") {
		t.Errorf("unexpected schema load output: %s", text)
	}

	result, err = server.handleSchemaFields(ctx, callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text = extractTextFromResult(result)
	if !strings.Contains(text, "I.studyType (select) [required]") {
		t.Errorf("unexpected schema fields output: %s", text)
	}

	// A value outside the declared options stores with a warning
	result, err = server.handleFieldSet(ctx, callRequest(map[string]interface{}{
		"field_id": "studyType",
		"section":  "I",
		"value":    "Cross-sectional",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), "validation warning") {
		t.Errorf("expected validation warning, got: %s", extractTextFromResult(result))
	}

	// A malformed document is an error result
	result, err = server.handleSchemaLoad(ctx, callRequest(map[string]interface{}{"document": `{"sections": []}`}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("malformed schema should produce an error result")
	}
}

func TestServer_HandleTemplateTools(t *testing.T) {
	server, err := NewServer(testConfig(), testStudio(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ctx := context.Background()

	result, err := server.handleTemplateAdd(ctx, callRequest(map[string]interface{}{
		"page":     float64(7),
		"field_id": "dose",
		"label":    "Dose",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), `Added template "dose" to page 7`) {
		t.Errorf("unexpected add output: %s", extractTextFromResult(result))
	}

	result, err = server.handleTemplateList(ctx, callRequest(map[string]interface{}{"page": float64(7)}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), "dose (Dose)") {
		t.Errorf("unexpected list output: %s", extractTextFromResult(result))
	}

	// Listing all pages includes the default seeded templates
	result, err = server.handleTemplateList(ctx, callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text := extractTextFromResult(result)
	if !strings.Contains(text, "Page 1:") || !strings.Contains(text, "study_id") {
		t.Errorf("expected seeded templates in listing: %s", text)
	}

	result, err = server.handleTemplateRemove(ctx, callRequest(map[string]interface{}{
		"page":     float64(7),
		"field_id": "dose",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), `Removed template "dose" from page 7`) {
		t.Errorf("unexpected remove output: %s", extractTextFromResult(result))
	}
}

func TestServer_HandleHighlightTools(t *testing.T) {
	server, err := NewServer(testConfig(), testStudio(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ctx := context.Background()

	result, err := server.handleHighlightAdd(ctx, callRequest(map[string]interface{}{
		"label":  "key finding",
		"page":   float64(2),
		"x":      float64(10),
		"y":      float64(20),
		"width":  float64(30),
		"height": float64(8),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text := extractTextFromResult(result)
	if !strings.Contains(text, "Added highlight") || !strings.Contains(text, "page 2") {
		t.Errorf("unexpected add output: %s", text)
	}

	result, err = server.handleHighlightList(ctx, callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text = extractTextFromResult(result)
	if !strings.Contains(text, "1 highlight(s)") || !strings.Contains(text, `"key finding"`) {
		t.Errorf("unexpected list output: %s", text)
	}

	// Pull the id out of the listing to remove it
	id := ""
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "ID: ") {
			id = strings.TrimPrefix(trimmed, "ID: ")
		}
	}
	if id == "" {
		t.Fatalf("could not find highlight id in listing: %s", text)
	}

	result, err = server.handleHighlightRemove(ctx, callRequest(map[string]interface{}{"id": id}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), "Removed highlight") {
		t.Errorf("unexpected remove output: %s", extractTextFromResult(result))
	}

	result, err = server.handleHighlightList(ctx, callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), "No highlights") {
		t.Errorf("expected empty listing, got: %s", extractTextFromResult(result))
	}

	// Missing geometry arguments produce an error result
	result, err = server.handleHighlightAdd(ctx, callRequest(map[string]interface{}{
		"page": float64(1),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("missing geometry should produce an error result")
	}
}

func TestServer_HandleSearchWithoutDocument(t *testing.T) {
	server, err := NewServer(testConfig(), testStudio(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	result, err := server.handleSearchText(context.Background(), callRequest(map[string]interface{}{"term": "infarction"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("search without a document should produce an error result")
	}
	if !strings.Contains(extractTextFromResult(result), "no document attached") {
		t.Errorf("unexpected error text: %s", extractTextFromResult(result))
	}
}

func TestServer_HandleExport(t *testing.T) {
	server, err := NewServer(testConfig(), testStudio(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ctx := context.Background()

	_, err = server.handleFieldSet(ctx, callRequest(map[string]interface{}{
		"field_id": "study_id",
		"value":    "10.1/x",
		"page":     float64(1),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	result, err := server.handleExportJSON(ctx, callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text := extractTextFromResult(result)
	if !strings.Contains(text, "_export_") || !strings.Contains(text, `"project": "default"`) {
		t.Errorf("unexpected JSON export output: %s", text)
	}

	result, err = server.handleExportCSV(ctx, callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text = extractTextFromResult(result)
	if !strings.Contains(text, ".csv") || !strings.Contains(text, "type,id,label,page,kind,scope,fieldId,value") {
		t.Errorf("unexpected CSV export output: %s", text)
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	server, err := NewServer(testConfig(), testStudio(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	result, err := server.handleServerInfo(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	for _, expected := range []string{
		"test-server v1.0.0",
		"* default",
		"project_create",
		"search_text",
		"export_csv",
	} {
		if !strings.Contains(text, expected) {
			t.Errorf("server info should mention %q, got: %s", expected, text)
		}
	}
}

func TestServer_InvalidArguments(t *testing.T) {
	server, err := NewServer(testConfig(), testStudio(t))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	emptyRequest := callRequest(map[string]interface{}{})

	handlers := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{"ProjectCreate", server.handleProjectCreate},
		{"ProjectSwitch", server.handleProjectSwitch},
		{"ProjectDelete", server.handleProjectDelete},
		{"FieldSet", server.handleFieldSet},
		{"FieldGet", server.handleFieldGet},
		{"PageFields", server.handlePageFields},
		{"SectionFields", server.handleSectionFields},
		{"TemplateAdd", server.handleTemplateAdd},
		{"TemplateRemove", server.handleTemplateRemove},
		{"SchemaLoad", server.handleSchemaLoad},
		{"HighlightAdd", server.handleHighlightAdd},
		{"HighlightRemove", server.handleHighlightRemove},
		{"SearchText", server.handleSearchText},
	}

	for _, h := range handlers {
		t.Run(h.name, func(t *testing.T) {
			result, err := h.handler(context.Background(), emptyRequest)
			if err != nil {
				t.Errorf("handler should not return error, got: %v", err)
			}
			if result == nil {
				t.Fatal("result should not be nil")
			}
			if !result.IsError {
				t.Errorf("expected error result for missing arguments, got: %s", extractTextFromResult(result))
			}
		})
	}
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	// Try to extract text content
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		// Handle pointer to TextContent as well
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
