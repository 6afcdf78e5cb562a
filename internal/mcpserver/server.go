// Package mcpserver exposes the food log as MCP tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwulff/calo/internal/db"
	"github.com/jwulff/calo/internal/recorder"
	"github.com/jwulff/calo/internal/report"
	"github.com/jwulff/calo/internal/state"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Store is the subset of the entry store the tools need.
type Store interface {
	EntriesForDate(ctx context.Context, date string) ([]db.FoodEntry, error)
	UpdateQuantity(ctx context.Context, id int64, quantity float64) (db.FoodEntry, error)
	Delete(ctx context.Context, id int64) error
}

// MealLogger turns a free-text meal description into entries.
type MealLogger interface {
	ProcessTranscript(ctx context.Context, date, text string) (recorder.Result, error)
}

// Server holds the tool handlers.
type Server struct {
	store   Store
	meals   MealLogger
	state   *state.Container
	log     *zap.Logger
	version string
	now     func() time.Time
}

// New returns a Server. st may be nil.
func New(store Store, meals MealLogger, st *state.Container, log *zap.Logger, version string) *Server {
	return &Server{
		store:   store,
		meals:   meals,
		state:   st,
		log:     log,
		version: version,
		now:     time.Now,
	}
}

// MCPServer builds the MCP server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("calo", s.version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("day_summary",
		mcp.WithDescription("List the foods logged on a day with calorie and macro totals"),
		mcp.WithString("date", mcp.Description("Day as YYYY-MM-DD, default today")),
	), s.handleDaySummary)

	srv.AddTool(mcp.NewTool("week_summary",
		mcp.WithDescription("Daily totals for the Monday-to-Sunday week containing a day"),
		mcp.WithString("date", mcp.Description("Any day of the week as YYYY-MM-DD, default today")),
	), s.handleWeekSummary)

	srv.AddTool(mcp.NewTool("month_summary",
		mcp.WithDescription("Totals per ISO week for a month, with daily averages"),
		mcp.WithString("month", mcp.Description("Month as YYYY-MM, default this month")),
	), s.handleMonthSummary)

	srv.AddTool(mcp.NewTool("log_meal",
		mcp.WithDescription("Log the foods in a free-text meal description, e.g. \"two eggs and 50 g of toast\""),
		mcp.WithString("description", mcp.Required(), mcp.Description("What was eaten, with amounts if known")),
		mcp.WithString("date", mcp.Description("Day to log against as YYYY-MM-DD, default today")),
	), s.handleLogMeal)

	srv.AddTool(mcp.NewTool("update_quantity",
		mcp.WithDescription("Change the quantity of a logged entry; totals are recomputed"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Entry id")),
		mcp.WithNumber("quantity", mcp.Required(), mcp.Description("New quantity in the entry's unit")),
	), s.handleUpdateQuantity)

	srv.AddTool(mcp.NewTool("delete_entry",
		mcp.WithDescription("Delete a logged entry"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Entry id")),
	), s.handleDeleteEntry)

	return srv
}

// ServeStdio serves the tools on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCPServer())
}

func (s *Server) today() string {
	return report.FormatDate(s.now())
}

func (s *Server) dateArg(req mcp.CallToolRequest) (string, error) {
	date := strings.TrimSpace(req.GetString("date", ""))
	if date == "" {
		return s.today(), nil
	}
	if _, err := report.ParseDate(date); err != nil {
		return "", err
	}
	return date, nil
}

func (s *Server) handleDaySummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := s.dateArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	day, err := report.Day(ctx, s.store, date)
	if err != nil {
		s.log.Error("day summary", zap.String("date", date), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(report.DaySummary(day)), nil
}

func (s *Server) handleWeekSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := s.dateArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	days, err := report.Week(ctx, s.store, date)
	if err != nil {
		s.log.Error("week summary", zap.String("date", date), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(report.WeekSummary(days)), nil
}

func (s *Server) handleMonthSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	month := strings.TrimSpace(req.GetString("month", ""))
	if month == "" {
		month = s.now().Format("2006-01")
	}
	year, m, err := report.ParseMonth(month)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	buckets, err := report.Month(ctx, s.store, year, m)
	if err != nil {
		s.log.Error("month summary", zap.String("month", month), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(month + "\n" + report.MonthSummary(buckets)), nil
}

func (s *Server) handleLogMeal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := s.dateArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.meals.ProcessTranscript(ctx, date, text)
	if err != nil && len(res.Entries) == 0 {
		return mcp.NewToolResultError(recorder.UserMessage(err)), nil
	}
	out := res.Summary()
	if err != nil {
		out += "Stopped early: " + recorder.UserMessage(err) + "\n"
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) handleUpdateQuantity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireFloat("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	qty, err := req.RequireFloat("quantity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.store.UpdateQuantity(ctx, int64(id), qty)
	if errors.Is(err, db.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no entry with id %d", int64(id))), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.state != nil {
		s.state.Update(e)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated #%d %s to %g%s: %.0f kcal", e.ID, e.Name, e.Quantity, e.Unit, e.Calories)), nil
}

func (s *Server) handleDeleteEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireFloat("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.Delete(ctx, int64(id)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.state != nil {
		s.state.Remove(int64(id))
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted #%d", int64(id))), nil
}
