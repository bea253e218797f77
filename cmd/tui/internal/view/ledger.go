package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/ledger"
)

type ledgerState int

const (
	ledgerStateBrowse ledgerState = iota
	ledgerStateAdd
)

type LedgerModel struct {
	CommonModel
	lgr *ledger.Service

	walletID   uuid.UUID
	walletName string

	state   ledgerState
	table   table.Model
	txs     []*ledger.Transaction
	form    *huh.Form
	loading bool
	err     error
	status  string

	// Form bindings
	formKind   string
	formAmount string
	formMemo   string
	formDate   string
}

func NewLedgerModel(lgr *ledger.Service, walletID uuid.UUID, walletName string) LedgerModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Type", Width: 16},
		{Title: "Amount", Width: 15},
		{Title: "Balance", Width: 15},
		{Title: "Memo", Width: 35},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
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

	return LedgerModel{
		lgr:        lgr,
		walletID:   walletID,
		walletName: walletName,
		table:      t,
		loading:    true,
	}
}

func (m LedgerModel) Title() string { return "Ledger: " + m.walletName }
func (m LedgerModel) ShortHelp() string {
	if m.state == ledgerStateAdd {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | a: add entry | x: delete entry | r: refresh"
}

func (m LedgerModel) Init() tea.Cmd {
	return m.loadTxsCmd()
}

func (m LedgerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadLedgerMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.txs = msg.txs
		m.refreshTable()

		return m, nil

	case ledgerSaveMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Rejected: %v", msg.err)
		} else if msg.rewrites > 0 {
			m.status = fmt.Sprintf("Saved, %d later balances rewritten", msg.rewrites)
		} else {
			m.status = "Saved"
		}

		m.state = ledgerStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadTxsCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case ledgerStateBrowse:
		return m.updateBrowse(msg)
	case ledgerStateAdd:
		return m.updateAdd(msg)
	}

	return m, nil
}

func (m LedgerModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadTxsCmd()
		case "a":
			return m.enterAddMode()
		case "x":
			idx := m.table.Cursor()
			if idx < 0 || idx >= len(m.txs) {
				return m, nil
			}

			return m, m.deleteCmd(m.txs[idx].ID)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m LedgerModel) enterAddMode() (tea.Model, tea.Cmd) {
	m.formKind = string(ledger.KindIncome)
	m.formAmount = ""
	m.formMemo = ""
	m.formDate = FormatDate(time.Now())

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("kind").
				Title("Type").
				Options(
					huh.NewOption("Income", string(ledger.KindIncome)),
					huh.NewOption("Expense", string(ledger.KindExpense)),
				).
				Value(&m.formKind),

			huh.NewInput().
				Key("amount").
				Title("Amount").
				Placeholder("150000").
				Value(&m.formAmount).
				Validate(func(s string) error {
					d, err := decimal.NewFromString(strings.TrimSpace(s))
					if err != nil {
						return fmt.Errorf("not a number")
					}

					if !d.IsPositive() {
						return fmt.Errorf("must be greater than zero")
					}

					return nil
				}),

			huh.NewInput().
				Key("date").
				Title("Date").
				Placeholder("2025-06-01").
				Value(&m.formDate).
				Validate(func(s string) error {
					_, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
					return err
				}),

			huh.NewInput().
				Key("memo").
				Title("Memo").
				Value(&m.formMemo),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = ledgerStateAdd
	m.table.Blur()

	return m, m.form.Init()
}

func (m LedgerModel) updateAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = ledgerStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd()
}

func (m LedgerModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading ledger...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(m.Title()),
		tableView,
	)

	if m.state == ledgerStateAdd && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("New Entry\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *LedgerModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			string(tx.Kind),
			FormatAmount(tx.Signed()),
			FormatAmount(tx.Balance),
			tx.Memo,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadLedgerMsg struct {
	txs []*ledger.Transaction
	err error
}

func (m LedgerModel) loadTxsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.lgr.List(ctx, m.walletID, ledger.ListFilter{})

		return loadLedgerMsg{txs: txs, err: err}
	}
}

type ledgerSaveMsg struct {
	rewrites int
	err      error
}

func (m LedgerModel) saveCmd() tea.Cmd {
	kind := ledger.Kind(m.formKind)
	amountStr := strings.TrimSpace(m.formAmount)
	dateStr := strings.TrimSpace(m.formDate)
	memo := m.formMemo

	return func() tea.Msg {
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return ledgerSaveMsg{err: err}
		}

		date, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			return ledgerSaveMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.lgr.Create(ctx, ledger.CreateParams{
			WalletID: m.walletID,
			Kind:     kind,
			Amount:   amount,
			Memo:     memo,
			Date:     date,
		})
		if err != nil {
			return ledgerSaveMsg{err: err}
		}

		return ledgerSaveMsg{rewrites: res.SuffixRewrites}
	}
}

func (m LedgerModel) deleteCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.lgr.Delete(ctx, id)
		if err != nil {
			return ledgerSaveMsg{err: err}
		}

		return ledgerSaveMsg{rewrites: res.SuffixRewrites}
	}
}
