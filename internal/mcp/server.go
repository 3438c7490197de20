package mcp

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/paperdock/paperdock/internal/config"
	"github.com/paperdock/paperdock/internal/fields"
	"github.com/paperdock/paperdock/internal/highlight"
	"github.com/paperdock/paperdock/internal/studio"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	studio    *studio.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *studio.Service) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("studio service cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		studio:    svc,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Project lifecycle tools
	projectCreateTool := mcp.NewTool(
		"project_create",
		mcp.WithDescription("Create a new extraction project and switch to it"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the project to create"),
		),
	)
	s.mcpServer.AddTool(projectCreateTool, s.handleProjectCreate)

	projectSwitchTool := mcp.NewTool(
		"project_switch",
		mcp.WithDescription("Switch to an existing extraction project"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the project to activate"),
		),
	)
	s.mcpServer.AddTool(projectSwitchTool, s.handleProjectSwitch)

	projectDeleteTool := mcp.NewTool(
		"project_delete",
		mcp.WithDescription("Delete a project and all of its extracted data"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the project to delete"),
		),
	)
	s.mcpServer.AddTool(projectDeleteTool, s.handleProjectDelete)

	projectListTool := mcp.NewTool(
		"project_list",
		mcp.WithDescription("List all projects and show which one is active"),
	)
	s.mcpServer.AddTool(projectListTool, s.handleProjectList)

	// Field tools
	fieldSetTool := mcp.NewTool(
		"field_set",
		mcp.WithDescription("Set an extraction field value, scoped to a page (template dialect) or a schema section"),
		mcp.WithString("field_id",
			mcp.Required(),
			mcp.Description("Field identifier"),
		),
		mcp.WithString("value",
			mcp.Description("Field value; an empty value clears the field"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number for template-dialect fields"),
		),
		mcp.WithString("section",
			mcp.Description("Section id for schema-dialect fields"),
		),
	)
	s.mcpServer.AddTool(fieldSetTool, s.handleFieldSet)

	fieldGetTool := mcp.NewTool(
		"field_get",
		mcp.WithDescription("Read one extraction field value"),
		mcp.WithString("field_id",
			mcp.Required(),
			mcp.Description("Field identifier"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number for template-dialect fields"),
		),
		mcp.WithString("section",
			mcp.Description("Section id for schema-dialect fields"),
		),
	)
	s.mcpServer.AddTool(fieldGetTool, s.handleFieldGet)

	pageFieldsTool := mcp.NewTool(
		"page_fields",
		mcp.WithDescription("List all template-dialect field values stored for one page"),
		mcp.WithNumber("page",
			mcp.Required(),
			mcp.Description("Page number"),
		),
	)
	s.mcpServer.AddTool(pageFieldsTool, s.handlePageFields)

	sectionFieldsTool := mcp.NewTool(
		"section_fields",
		mcp.WithDescription("List all schema-dialect field values stored for one section"),
		mcp.WithString("section",
			mcp.Required(),
			mcp.Description("Section id"),
		),
	)
	s.mcpServer.AddTool(sectionFieldsTool, s.handleSectionFields)

	// Template tools
	templateAddTool := mcp.NewTool(
		"template_add",
		mcp.WithDescription("Add or replace a field template on a page"),
		mcp.WithNumber("page",
			mcp.Required(),
			mcp.Description("Page number"),
		),
		mcp.WithString("field_id",
			mcp.Required(),
			mcp.Description("Template field identifier"),
		),
		mcp.WithString("label",
			mcp.Description("Human-readable label shown for the field"),
		),
		mcp.WithString("placeholder",
			mcp.Description("Placeholder text shown when the field is empty"),
		),
	)
	s.mcpServer.AddTool(templateAddTool, s.handleTemplateAdd)

	templateRemoveTool := mcp.NewTool(
		"template_remove",
		mcp.WithDescription("Remove a field template from a page"),
		mcp.WithNumber("page",
			mcp.Required(),
			mcp.Description("Page number"),
		),
		mcp.WithString("field_id",
			mcp.Required(),
			mcp.Description("Template field identifier"),
		),
	)
	s.mcpServer.AddTool(templateRemoveTool, s.handleTemplateRemove)

	templateListTool := mcp.NewTool(
		"template_list",
		mcp.WithDescription("List the field templates of one page, or of all pages"),
		mcp.WithNumber("page",
			mcp.Description("Page number (lists every page when omitted)"),
		),
	)
	s.mcpServer.AddTool(templateListTool, s.handleTemplateList)

	// Schema tools
	schemaLoadTool := mcp.NewTool(
		"schema_load",
		mcp.WithDescription("Parse and activate an extraction schema (JSON document)"),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description("Schema document as a JSON string"),
		),
	)
	s.mcpServer.AddTool(schemaLoadTool, s.handleSchemaLoad)

	schemaFieldsTool := mcp.NewTool(
		"schema_fields",
		mcp.WithDescription("List the fields of the active extraction schema"),
	)
	s.mcpServer.AddTool(schemaFieldsTool, s.handleSchemaFields)

	// Highlight tools
	highlightAddTool := mcp.NewTool(
		"highlight_add",
		mcp.WithDescription("Add a durable highlight rectangle to a page"),
		mcp.WithString("label",
			mcp.Description("Label describing the highlighted region"),
		),
		mcp.WithNumber("page",
			mcp.Required(),
			mcp.Description("Page number"),
		),
		mcp.WithNumber("x",
			mcp.Required(),
			mcp.Description("Left edge in page coordinates"),
		),
		mcp.WithNumber("y",
			mcp.Required(),
			mcp.Description("Top edge in page coordinates"),
		),
		mcp.WithNumber("width",
			mcp.Required(),
			mcp.Description("Rectangle width"),
		),
		mcp.WithNumber("height",
			mcp.Required(),
			mcp.Description("Rectangle height"),
		),
	)
	s.mcpServer.AddTool(highlightAddTool, s.handleHighlightAdd)

	highlightRemoveTool := mcp.NewTool(
		"highlight_remove",
		mcp.WithDescription("Remove one highlight by id"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Highlight id"),
		),
	)
	s.mcpServer.AddTool(highlightRemoveTool, s.handleHighlightRemove)

	highlightListTool := mcp.NewTool(
		"highlight_list",
		mcp.WithDescription("List durable highlights followed by the current search highlights"),
	)
	s.mcpServer.AddTool(highlightListTool, s.handleHighlightList)

	// Search tool
	searchTextTool := mcp.NewTool(
		"search_text",
		mcp.WithDescription("Search the attached document and highlight every match"),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Text to search for (case-insensitive)"),
		),
	)
	s.mcpServer.AddTool(searchTextTool, s.handleSearchText)

	// Export tools
	exportJSONTool := mcp.NewTool(
		"export_json",
		mcp.WithDescription("Export the active project's data as a JSON bundle"),
	)
	s.mcpServer.AddTool(exportJSONTool, s.handleExportJSON)

	exportCSVTool := mcp.NewTool(
		"export_csv",
		mcp.WithDescription("Export the active project's data as CSV, one row per extracted fact"),
	)
	s.mcpServer.AddTool(exportCSVTool, s.handleExportCSV)

	// Server info tool
	serverInfoTool := mcp.NewTool(
		"server_info",
		mcp.WithDescription("Get server information, available tools, and the active project"),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// requirePage extracts a positive page number argument.
func requirePage(request mcp.CallToolRequest) (int, error) {
	args := request.GetArguments()
	page, ok := args["page"].(float64)
	if !ok || page < 1 {
		return 0, fmt.Errorf("page must be a positive number")
	}
	return int(page), nil
}

// Handler functions

func (s *Server) handleProjectCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.studio.CreateProject(studio.ProjectCreateRequest{Name: name})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Created project %q\n", name)
	responseText += s.formatProjectListResult(result)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleProjectSwitch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.studio.SwitchProject(studio.ProjectSwitchRequest{Name: name})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Active project: %s\n", result.Current)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleProjectDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.studio.DeleteProject(studio.ProjectDeleteRequest{Name: name})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Deleted project %q\n", name)
	responseText += s.formatProjectListResult(result)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleProjectList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.studio.ListProjects()
	return mcp.NewToolResultText(s.formatProjectListResult(result)), nil
}

func (s *Server) handleFieldSet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	req := studio.FieldSetRequest{FieldID: fieldID}
	if page, ok := args["page"].(float64); ok {
		req.Page = int(page)
	}
	if section, ok := args["section"].(string); ok {
		req.Section = section
	}
	if value, ok := args["value"].(string); ok {
		req.Value = value
	}

	result, err := s.studio.SetField(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatFieldSetResult(result)), nil
}

func (s *Server) handleFieldGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	req := studio.FieldGetRequest{FieldID: fieldID}
	if page, ok := args["page"].(float64); ok {
		req.Page = int(page)
	}
	if section, ok := args["section"].(string); ok {
		req.Section = section
	}

	result, err := s.studio.GetField(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.Value == "" {
		return mcp.NewToolResultText(fmt.Sprintf("%s is empty", result.Key)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s = %s", result.Key, result.Value)), nil
}

func (s *Server) handlePageFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := requirePage(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	values := s.studio.PageFields(page)
	if len(values) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No field values stored for page %d", page)), nil
	}

	responseText := fmt.Sprintf("Field values for page %d:\n", page)
	for id, value := range values {
		responseText += fmt.Sprintf("  %s = %s\n", id, value)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSectionFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	section, err := request.RequireString("section")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	values := s.studio.SectionFields(section)
	if len(values) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No field values stored for section %s", section)), nil
	}

	responseText := fmt.Sprintf("Field values for section %s:\n", section)
	for id, value := range values {
		responseText += fmt.Sprintf("  %s = %s\n", id, value)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleTemplateAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := requirePage(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	tpl := fields.Template{ID: fieldID}
	if label, ok := args["label"].(string); ok {
		tpl.Label = label
	}
	if placeholder, ok := args["placeholder"].(string); ok {
		tpl.Placeholder = placeholder
	}

	if err := s.studio.AddTemplate(studio.TemplateAddRequest{Page: page, Template: tpl}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Added template %q to page %d", fieldID, page)), nil
}

func (s *Server) handleTemplateRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := requirePage(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.studio.RemoveTemplate(studio.TemplateRemoveRequest{Page: page, FieldID: fieldID}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Removed template %q from page %d", fieldID, page)), nil
}

func (s *Server) handleTemplateList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	templates := s.studio.Templates()

	if page, ok := args["page"].(float64); ok && page > 0 {
		return mcp.NewToolResultText(s.formatPageTemplates(int(page), templates.ForPage(int(page)))), nil
	}

	responseText := ""
	for _, page := range templates.Pages() {
		responseText += s.formatPageTemplates(page, templates.ForPage(page))
	}
	if responseText == "" {
		responseText = "No templates defined"
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSchemaLoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := request.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.studio.LoadSchema(studio.SchemaLoadRequest{Raw: []byte(document)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Loaded schema version %s with %d field(s)\n", result.Version, len(result.FieldPaths))
	for _, path := range result.FieldPaths {
		responseText += fmt.Sprintf("  %s\n", path)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSchemaFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	parsed := s.studio.Schema()
	if parsed == nil {
		return mcp.NewToolResultText("No schema loaded"), nil
	}

	responseText := fmt.Sprintf("Schema version %s:\n", parsed.Version)
	for _, f := range parsed.Fields() {
		responseText += fmt.Sprintf("  %s (%s)", f.Path(), f.Type)
		if f.Required {
			responseText += " [required]"
		}
		if len(f.Options) > 0 {
			responseText += fmt.Sprintf(" options=%v", f.Options)
		}
		responseText += "\n"
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleHighlightAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := requirePage(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	var rect highlight.Rect
	for name, dst := range map[string]*float64{
		"x": &rect.X, "y": &rect.Y, "width": &rect.Width, "height": &rect.Height,
	} {
		v, ok := args[name].(float64)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("%s must be a number", name)), nil
		}
		*dst = v
	}

	label := ""
	if l, ok := args["label"].(string); ok {
		label = l
	}

	h, err := s.studio.AddHighlight(studio.HighlightAddRequest{
		Label:      label,
		PageNumber: page,
		Rect:       rect,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Added highlight %s on page %d", h.ID, h.PageNumber)), nil
}

func (s *Server) handleHighlightRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.studio.RemoveHighlight(studio.HighlightRemoveRequest{ID: id}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Removed highlight %s", id)), nil
}

func (s *Server) handleHighlightList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	highlights := s.studio.Highlights()
	if len(highlights) == 0 {
		return mcp.NewToolResultText("No highlights"), nil
	}

	responseText := fmt.Sprintf("%d highlight(s):\n", len(highlights))
	for i, h := range highlights {
		responseText += fmt.Sprintf("%d. [%s] page %d (%.1f, %.1f) %.1fx%.1f",
			i+1, h.Kind, h.PageNumber, h.X, h.Y, h.Width, h.Height)
		if h.Label != "" {
			responseText += fmt.Sprintf(" %q", h.Label)
		}
		responseText += fmt.Sprintf("\n   ID: %s\n", h.ID)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleSearchText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := request.RequireString("term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.studio.Search(ctx, studio.SearchRequest{Term: term})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatSearchResult(result)), nil
}

func (s *Server) handleExportJSON(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.studio.Export(studio.ExportRequest{Format: "json"})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Export: %s\n\n%s", result.Filename, result.Data)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleExportCSV(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.studio.Export(studio.ExportRequest{Format: "csv"})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Export: %s\n\n%s", result.Filename, result.Data)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects := s.studio.ListProjects()

	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Data directory: %s\n", s.config.DataDirectory)
	if s.config.PDFPath != "" {
		text += fmt.Sprintf("Attached document: %s\n", s.config.PDFPath)
	}
	text += fmt.Sprintf("Max file size: %d MB\n\n", s.config.MaxFileSize/(1024*1024))
	text += s.formatProjectListResult(projects)

	text += "\nAvailable tools:\n"
	for _, tool := range []struct{ name, desc string }{
		{"project_create", "Create a new extraction project and switch to it"},
		{"project_switch", "Switch to an existing extraction project"},
		{"project_delete", "Delete a project and all of its extracted data"},
		{"project_list", "List all projects and show which one is active"},
		{"field_set", "Set an extraction field value"},
		{"field_get", "Read one extraction field value"},
		{"page_fields", "List field values stored for one page"},
		{"section_fields", "List field values stored for one section"},
		{"template_add", "Add or replace a field template on a page"},
		{"template_remove", "Remove a field template from a page"},
		{"template_list", "List field templates"},
		{"schema_load", "Parse and activate an extraction schema"},
		{"schema_fields", "List the fields of the active schema"},
		{"highlight_add", "Add a durable highlight rectangle"},
		{"highlight_remove", "Remove one highlight by id"},
		{"highlight_list", "List all highlights"},
		{"search_text", "Search the attached document and highlight matches"},
		{"export_json", "Export the active project as JSON"},
		{"export_csv", "Export the active project as CSV"},
		{"server_info", "Get server information"},
	} {
		text += fmt.Sprintf("  • %s: %s\n", tool.name, tool.desc)
	}

	return mcp.NewToolResultText(text), nil
}

// Formatting methods

func (s *Server) formatProjectListResult(result *studio.ProjectListResult) string {
	text := fmt.Sprintf("%d project(s):\n", len(result.Projects))
	for _, name := range result.Projects {
		marker := "  "
		if name == result.Current {
			marker = "* "
		}
		text += fmt.Sprintf("%s%s\n", marker, name)
	}
	return text
}

func (s *Server) formatFieldSetResult(result *studio.FieldSetResult) string {
	switch {
	case !result.Stored:
		return fmt.Sprintf("Rejected %s: %s", result.Key, result.Reason)
	case !result.Valid:
		return fmt.Sprintf("Stored %s with a validation warning: %s", result.Key, result.Reason)
	default:
		return fmt.Sprintf("Stored %s", result.Key)
	}
}

func (s *Server) formatPageTemplates(page int, templates []fields.Template) string {
	if len(templates) == 0 {
		return fmt.Sprintf("Page %d: no templates\n", page)
	}
	text := fmt.Sprintf("Page %d:\n", page)
	for _, tpl := range templates {
		text += fmt.Sprintf("  %s", tpl.ID)
		if tpl.Label != "" {
			text += fmt.Sprintf(" (%s)", tpl.Label)
		}
		text += "\n"
	}
	return text
}

func (s *Server) formatSearchResult(result *studio.SearchResult) string {
	if len(result.Matches) == 0 {
		return fmt.Sprintf("No matches for %q", result.Term)
	}

	text := fmt.Sprintf("Found %d match(es) for %q\n", len(result.Matches), result.Term)
	if result.Superseded {
		text += "A newer search replaced these results before they were applied\n"
	}
	for i, m := range result.Matches {
		text += fmt.Sprintf("%d. Page %d: %s\n", i+1, m.PageNumber, m.Excerpt)
	}
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting paperdock MCP server in stdio mode")
		log.Printf("Data directory: %s", s.config.DataDirectory)
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// For now, we'll just use stdio mode since the mark3labs library
	// handles the transport differently
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
