package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/masjidhub/masjidkas/cmd/tui/internal/view"
	"github.com/masjidhub/masjidkas/internal/config"
	"github.com/masjidhub/masjidkas/internal/database"
	"github.com/masjidhub/masjidkas/internal/ledger"
	ledgerStore "github.com/masjidhub/masjidkas/internal/ledger/store"
)

type model struct {
	ledgerService *ledger.Service
	ownerID       uuid.UUID

	currentView View

	walletsView view.WalletsModel
	ledgerView  view.LedgerModel
}

type View int

const (
	ViewMenu    View = 0
	ViewWallets View = 1
	ViewLedger  View = 2
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ownerID, err := uuid.Parse(cfg.TUI.OwnerID)
	if err != nil {
		slog.Error("TUI_OWNER_ID must be a valid uuid", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	ledgerSvc := ledger.NewService(ledgerStore.New(db), cfg.Ledger.AllowNegative)

	return model{
		ledgerService: ledgerSvc,
		ownerID:       ownerID,
		currentView:   ViewMenu,
		walletsView:   view.NewWalletsModel(ledgerSvc, ownerID),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewWallets
				m.walletsView = view.NewWalletsModel(m.ledgerService, m.ownerID)

				return m, m.walletsView.Init()
			}
		}
	case view.OpenLedgerMsg:
		m.currentView = ViewLedger
		m.ledgerView = view.NewLedgerModel(m.ledgerService, msg.WalletID, msg.WalletName)

		return m, m.ledgerView.Init()
	case view.BackMsg:
		switch m.currentView {
		case ViewLedger:
			m.currentView = ViewWallets
			return m, m.walletsView.Init()
		default:
			m.currentView = ViewMenu
			return m, nil
		}
	}

	switch m.currentView {
	case ViewWallets:
		var newModel tea.Model
		newModel, cmd = m.walletsView.Update(msg)
		m.walletsView = newModel.(view.WalletsModel)
	case ViewLedger:
		var newModel tea.Model
		newModel, cmd = m.ledgerView.Update(msg)
		m.ledgerView = newModel.(view.LedgerModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"MasjidKas TUI\n\n" +
				"1. Wallets & Balances\n\n" +
				"q. Quit",
		)
	case ViewWallets:
		return m.walletsView.View()
	case ViewLedger:
		return m.ledgerView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
