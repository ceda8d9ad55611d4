package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/gastos/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/gastos/internal/bootstrap"
	"github.com/MrJamesThe3rd/gastos/internal/config"
	"github.com/MrJamesThe3rd/gastos/internal/expense"
	"github.com/MrJamesThe3rd/gastos/internal/export"
	"github.com/MrJamesThe3rd/gastos/internal/importer"
	"github.com/MrJamesThe3rd/gastos/internal/localcache"
)

type model struct {
	appName       string
	ledger        expense.Ledger
	importService *importer.Service
	exportService *export.Service

	currentView View

	summaryView view.SummaryModel
	listView    view.ListModel
	addView     view.AddModel
	importView  view.ImportModel
	exportView  view.ExportModel
}

type View int

const (
	ViewMenu    View = 0
	ViewSummary View = 1
	ViewList    View = 2
	ViewAdd     View = 3
	ViewImport  View = 4
	ViewExport  View = 5
)

func newModel(cfg *config.Config, ledger expense.Ledger, logger *slog.Logger) model {
	impSvc := importer.NewService(logger)
	expSvc := export.NewService(cfg.App.Locale)

	return model{
		appName:       cfg.App.Name,
		ledger:        ledger,
		importService: impSvc,
		exportService: expSvc,
		currentView:   ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewSummary
				m.summaryView = view.NewSummaryModel(m.ledger, m.exportService)

				return m, m.summaryView.Init()
			case "2":
				m.currentView = ViewList
				m.listView = view.NewListModel(m.ledger)

				return m, m.listView.Init()
			case "3":
				m.currentView = ViewAdd
				m.addView = view.NewAddModel(m.ledger)

				return m, m.addView.Init()
			case "4":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.ledger, m.importService)

				return m, m.importView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.ledger, m.exportService)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewSummary:
		var newModel tea.Model
		newModel, cmd = m.summaryView.Update(msg)
		m.summaryView = newModel.(view.SummaryModel)
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	case ViewAdd:
		var newModel tea.Model
		newModel, cmd = m.addView.Update(msg)
		m.addView = newModel.(view.AddModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	var current view.View

	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + "\n\n" +
				"1. Resumen del mes\n" +
				"2. Gastos\n" +
				"3. Agregar gasto\n" +
				"4. Importar CSV\n" +
				"5. Exportar\n\n" +
				"q. Salir",
		)
	case ViewSummary:
		current = m.summaryView
	case ViewList:
		current = m.listView
	case ViewAdd:
		current = m.addView
	case ViewImport:
		current = m.importView
	case ViewExport:
		current = m.exportView
	default:
		return "Unknown View"
	}

	title := lipgloss.NewStyle().Bold(true).PaddingLeft(2).PaddingTop(1).Render(current.Title())
	help := lipgloss.NewStyle().Faint(true).PaddingLeft(2).Render(current.ShortHelp())

	return lipgloss.JoinVertical(lipgloss.Left, title, current.View(), help)
}

// openLedger picks the household ledger when a user is configured, and the
// device-local book otherwise. The returned function releases it.
func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (expense.Ledger, func(), error) {
	if cfg.App.Mode != config.ModeRemote || cfg.App.UserID == "" {
		return bootstrap.OpenLocalBook(ctx, cfg, localcache.NewHub(), logger)
	}

	userID, err := uuid.Parse(cfg.App.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing user id: %w", err)
	}

	remote, err := bootstrap.OpenRemote(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening remote store: %w", err)
	}

	hh, err := remote.Households.Resolve(ctx, userID)
	if err != nil {
		remote.Close()
		return nil, nil, fmt.Errorf("resolving household: %w", err)
	}

	logger.Info("using household ledger", "household_id", hh.ID, "household", hh.Name)

	return remote.Sessions.Collection(ctx, userID.String(), hh.ID.String()), remote.Close, nil
}

// openLog sends logs next to the local cache so they do not draw over the UI.
func openLog(cfg *config.Config) (io.Writer, func()) {
	dir := filepath.Dir(cfg.Cache.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return io.Discard, func() {}
	}

	f, err := tea.LogToFile(filepath.Join(dir, "tui.log"), "")
	if err != nil {
		return io.Discard, func() {}
	}

	return f, func() { f.Close() }
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	w, closeLog := openLog(cfg)
	defer closeLog()

	logger := bootstrap.Logger(cfg, w)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger, release, err := openLedger(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open ledger: %v\n", err)
		os.Exit(1)
	}
	defer release()

	p := tea.NewProgram(newModel(cfg, ledger, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("failed to run TUI", "error", err)
		fmt.Fprintf(os.Stderr, "failed to run TUI: %v\n", err)
		os.Exit(1)
	}
}
