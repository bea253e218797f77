package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

type WalletsModel struct {
	CommonModel
	lgr     *ledger.Service
	ownerID uuid.UUID

	table    table.Model
	balances []ledger.WalletBalance
	loading  bool
	err      error
}

func NewWalletsModel(lgr *ledger.Service, ownerID uuid.UUID) WalletsModel {
	columns := []table.Column{
		{Title: "Wallet", Width: 30},
		{Title: "Type", Width: 10},
		{Title: "Balance", Width: 18},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return WalletsModel{
		lgr:     lgr,
		ownerID: ownerID,
		table:   t,
		loading: true,
	}
}

func (m WalletsModel) Title() string { return "Wallets" }
func (m WalletsModel) ShortHelp() string {
	return "Esc: back | Enter: open ledger | r: refresh"
}

func (m WalletsModel) Init() tea.Cmd {
	return m.loadBalancesCmd()
}

func (m WalletsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadBalancesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.balances = msg.balances
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadBalancesCmd()
		case "enter":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.balances) {
				return m, nil
			}

			b := m.balances[idx]

			return m, func() tea.Msg {
				return OpenLedgerMsg{WalletID: b.WalletID, WalletName: b.WalletName}
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m WalletsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading wallets...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	total := decimal.Zero
	for _, b := range m.balances {
		total = total.Add(b.Balance)
	}

	header := fmt.Sprintf("Total across wallets: %s", FormatAmount(total))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *WalletsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.balances))
	for _, b := range m.balances {
		rows = append(rows, table.Row{
			b.WalletName,
			b.WalletType,
			FormatAmount(b.Balance),
		})
	}

	m.table.SetRows(rows)
}

type loadBalancesMsg struct {
	balances []ledger.WalletBalance
	err      error
}

func (m WalletsModel) loadBalancesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		balances, err := m.lgr.OwnerBalances(ctx, m.ownerID)

		return loadBalancesMsg{balances: balances, err: err}
	}
}
