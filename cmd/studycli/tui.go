package main

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	pb "github.com/domino14/flashcard_server/api/rpc/flashcards"
	"github.com/domino14/flashcard_server/internal/srs"
)

// studyClient is the part of the flashcard service a study session needs.
type studyClient interface {
	GetDueCards(context.Context, *connect.Request[pb.GetDueCardsRequest]) (*connect.Response[pb.DueCardsResponse], error)
	RecordStudyResult(context.Context, *connect.Request[pb.RecordStudyResultRequest]) (*connect.Response[pb.Flashcard], error)
}

type dueLoadedMsg struct {
	cards   []*pb.Flashcard
	overdue int
}

type reviewedMsg struct {
	card   *pb.Flashcard
	rating srs.Rating
}

type errMsg struct{ err error }

type model struct {
	client    studyClient
	username  string
	batchSize int

	textInput  textinput.Model
	cards      []*pb.Flashcard
	idx        int
	overdue    int
	showAnswer bool
	guess      string
	reviewed   int
	status     string
	loading    bool
}

func initialModel(client studyClient, username string, batchSize int) model {
	ti := textinput.New()
	ti.Placeholder = "Your answer"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 40

	return model{
		client:    client,
		username:  username,
		batchSize: batchSize,
		textInput: ti,
		loading:   true,
	}
}

func loadDueCmd(client studyClient, limit int) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.GetDueCards(context.Background(),
			connect.NewRequest(&pb.GetDueCardsRequest{Limit: limit}))
		if err != nil {
			return errMsg{err}
		}
		return dueLoadedMsg{cards: resp.Msg.Cards, overdue: resp.Msg.OverdueCount}
	}
}

func recordCmd(client studyClient, cardID string, rating srs.Rating) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.RecordStudyResult(context.Background(),
			connect.NewRequest(&pb.RecordStudyResultRequest{CardId: cardID, Rating: int(rating)}))
		if err != nil {
			return errMsg{err}
		}
		return reviewedMsg{card: resp.Msg, rating: rating}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, loadDueCmd(m.client, m.batchSize))
}

func (m model) current() *pb.Flashcard {
	if m.idx < len(m.cards) {
		return m.cards[m.idx]
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.current() != nil && !m.showAnswer {
				m.showAnswer = true
				m.guess = strings.TrimSpace(m.textInput.Value())
				m.textInput.Reset()
				return m, nil
			}
		}
		if m.showAnswer {
			// While the answer shows, keys are ratings and never reach the
			// text input.
			r, err := srs.ParseRating(msg.String())
			if err != nil {
				return m, nil
			}
			card := m.current()
			m.showAnswer = false
			m.guess = ""
			m.idx++
			cmds := []tea.Cmd{recordCmd(m.client, card.Id, r)}
			if m.current() == nil {
				m.loading = true
				cmds = append(cmds, loadDueCmd(m.client, m.batchSize))
			}
			return m, tea.Batch(cmds...)
		}

	case dueLoadedMsg:
		m.loading = false
		m.cards = msg.cards
		m.idx = 0
		m.overdue = msg.overdue

	case reviewedMsg:
		m.reviewed++
		m.status = fmt.Sprintf("Rated %s; next review in %d day(s).", msg.rating, msg.card.Interval)

	case errMsg:
		m.status = "Error: " + msg.err.Error()
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m model) View() string {
	header := "Studying as " + m.username
	if m.reviewed > 0 {
		header += fmt.Sprintf(" (%d reviewed)", m.reviewed)
	}
	var body, footer string
	card := m.current()
	switch {
	case m.loading:
		body = "Loading due cards..."
	case card == nil:
		body = "Nothing is due. Come back later, or add cards with `studycli add`."
	default:
		body = strings.Repeat("-", 20) + "\n\n"
		if card.Title != "" {
			body += "  [" + card.Title + "]\n"
		}
		body += "  " + card.Question + "\n\n"
		if m.showAnswer {
			if m.guess != "" {
				body += "  You said: " + m.guess + "\n"
			}
			body += "  Answer:   " + card.Answer + "\n"
			footer = "(1) Again    (2) Hard    (3) Good    (4) Easy"
		} else {
			footer = fmt.Sprintf("Enter to show the answer. %d due.", m.overdue)
		}
	}
	view := header + "\n\n" + body + "\n\n" + strings.Repeat("-", 25) + "\n" + footer + "\n"
	if m.status != "" {
		view += "\n" + m.status + "\n"
	}
	if card != nil && !m.showAnswer {
		view += "\n" + m.textInput.View() + "\n"
	}
	return view
}
