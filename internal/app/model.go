package app

import (
	"context"
	"errors"
	"time"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/capture"
	"github.com/jwulff/minutes/internal/chat"
	"github.com/jwulff/minutes/internal/db"
	"github.com/jwulff/minutes/internal/logger"
	"github.com/jwulff/minutes/internal/orchestrator"
	"github.com/jwulff/minutes/internal/roles"
	"github.com/jwulff/minutes/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Screen is the top-level screen.
type Screen int

const (
	ScreenLoading Screen = iota
	ScreenLogin
	ScreenMain
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusSidebar PanelFocus = iota
	FocusContent
)

// ResultTab is the tab shown under the recording panel.
type ResultTab int

const (
	TabSummary ResultTab = iota
	TabTranscript
	TabChat
)

// inputMode is the text input that currently receives keys.
type inputMode int

const (
	inputNone inputMode = iota
	inputLogin
	inputPath
	inputChat
	inputPassword
)

const historyLimit = 50

// Languages offered by the language selector.
var Languages = []string{"en", "es"}

var captureTypes = []capture.Type{capture.TypeMicrophone, capture.TypeSystem, capture.TypeBoth}

// Auth is the session gate used by the UI.
type Auth interface {
	Check() (api.User, error)
	Login(ctx context.Context, email, password string) (api.User, error)
	Logout() error
	ChangePassword(ctx context.Context, current, next, confirm string) error
}

// AgentLister loads the agents available for processing.
type AgentLister interface {
	ListAgents(ctx context.Context, userID int, onlyActive bool) ([]api.Agent, error)
}

// HistoryStore reads a user's local recording history.
type HistoryStore interface {
	Recordings(userID, limit int) ([]db.Recording, error)
}

// Deps are the services the model drives.
type Deps struct {
	Auth      Auth
	Flow      *orchestrator.Orchestrator
	Chat      *chat.Conversation
	Agents    AgentLister
	History   HistoryStore
	NewSource func(capture.Type) capture.Source
	Language  string
	Log       logger.Logger
}

// Model is the root bubbletea model for the minutes TUI.
type Model struct {
	deps Deps
	ctx  context.Context

	screen Screen
	width  int
	height int

	// Session
	user      api.User
	role      roles.Role
	menu      roles.Menu
	menuIndex int
	view      roles.View
	viewLabel string
	focus     PanelFocus

	// Input
	input     inputMode
	login     form
	loginBusy bool
	password  form
	pwBusy    bool
	path      field
	chatInput field

	// Capture
	captureType capture.Type
	source      capture.Source
	recording   bool
	stopping    bool
	elapsed     time.Duration
	recordSeq   int

	// Staging and processing
	staged     *orchestrator.Staged
	language   string
	agents     []api.Agent
	agentIndex int
	processing bool
	statusSeq  int
	statusText string

	// Results
	result   *api.Result
	summary  string
	tab      ResultTab
	scroll   int
	chatBusy bool

	// History
	history      []db.Recording
	historyIndex int

	// Messages
	errorMessage   string
	errorTransient bool
	notice         string
}

// New creates a new Model with default state.
func New(deps Deps) Model {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	lang := deps.Language
	if lang == "" {
		lang = orchestrator.DefaultLanguage
	}
	return Model{
		deps:        deps,
		ctx:         context.Background(),
		screen:      ScreenLoading,
		focus:       FocusContent,
		view:        roles.ViewRecord,
		captureType: capture.TypeMicrophone,
		language:    lang,
		agentIndex:  -1,
		login: newForm(
			field{label: "Email"},
			field{label: "Password", secret: true},
		),
		password: newForm(
			field{label: "Current password", secret: true},
			field{label: "New password", secret: true},
			field{label: "Confirm password", secret: true},
		),
		path:      field{label: "File"},
		chatInput: field{label: "Ask"},
	}
}

// Init checks for an existing session.
func (m Model) Init() tea.Cmd {
	return checkSessionCmd(m.deps.Auth)
}

func checkSessionCmd(auth Auth) tea.Cmd {
	return func() tea.Msg {
		u, err := auth.Check()
		return SessionCheckedMsg{User: u, Err: err}
	}
}

func loginCmd(ctx context.Context, auth Auth, email, password string) tea.Cmd {
	return func() tea.Msg {
		u, err := auth.Login(ctx, email, password)
		return LoginDoneMsg{User: u, Err: err}
	}
}

func logoutCmd(auth Auth) tea.Cmd {
	return func() tea.Msg {
		return LogoutDoneMsg{Err: auth.Logout()}
	}
}

func changePasswordCmd(ctx context.Context, auth Auth, current, next, confirm string) tea.Cmd {
	return func() tea.Msg {
		return PasswordChangedMsg{Err: auth.ChangePassword(ctx, current, next, confirm)}
	}
}

func startRecordingCmd(ctx context.Context, src capture.Source) tea.Cmd {
	return func() tea.Msg {
		return RecordingStartedMsg{Err: src.Start(ctx)}
	}
}

// stopRecordingCmd stops the source and stages what it captured.
func stopRecordingCmd(ctx context.Context, src capture.Source, flow *orchestrator.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		blob, err := src.Stop(ctx)
		if err != nil {
			return RecordingStoppedMsg{Err: err}
		}
		st, err := flow.StageBlob(ctx, blob)
		return RecordingStoppedMsg{Staged: st, Err: err}
	}
}

func recordingTickCmd(seq int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return RecordingTickMsg{Seq: seq}
	})
}

func stageCmd(ctx context.Context, flow *orchestrator.Orchestrator, path string) tea.Cmd {
	return func() tea.Msg {
		st, err := flow.Stage(ctx, path)
		return StagedMsg{Staged: st, Err: err}
	}
}

func processCmd(ctx context.Context, flow *orchestrator.Orchestrator, opts orchestrator.Options) tea.Cmd {
	return func() tea.Msg {
		res, err := flow.Process(ctx, opts)
		return ProcessDoneMsg{Result: res, Err: err}
	}
}

// statusTickCmd schedules status message n of processing run seq.
func statusTickCmd(seq, n int) tea.Cmd {
	return tea.Tick(orchestrator.StatusInterval, func(time.Time) tea.Msg {
		return StatusTickMsg{Seq: seq, N: n}
	})
}

func sendChatCmd(ctx context.Context, conv *chat.Conversation, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := conv.Send(ctx, text)
		return ChatReplyMsg{Reply: reply, Err: err}
	}
}

func loadAgentsCmd(ctx context.Context, agents AgentLister, userID int) tea.Cmd {
	return func() tea.Msg {
		list, err := agents.ListAgents(ctx, userID, false)
		return AgentsLoadedMsg{Agents: list, Err: err}
	}
}

func loadHistoryCmd(store HistoryStore, userID int) tea.Cmd {
	return func() tea.Msg {
		recs, err := store.Recordings(userID, historyLimit)
		return HistoryLoadedMsg{Recordings: recs, Err: err}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SessionCheckedMsg:
		if msg.Err != nil {
			if !errors.Is(msg.Err, session.ErrNotAuthenticated) {
				m.deps.Log.Warn(m.ctx, "session check: %v", msg.Err)
			}
			m.toLogin()
			return m, nil
		}
		return m, m.enterMain(msg.User)

	case LoginDoneMsg:
		m.loginBusy = false
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
			m.errorTransient = false
			return m, nil
		}
		m.login.reset()
		return m, m.enterMain(msg.User)

	case LogoutDoneMsg:
		if msg.Err != nil {
			return m, m.transientError(msg.Err.Error())
		}
		m.reset()
		m.toLogin()
		return m, nil

	case PasswordChangedMsg:
		m.pwBusy = false
		if msg.Err != nil {
			return m, m.transientError(session.PasswordChangeMessage(msg.Err))
		}
		m.password.reset()
		m.input = inputNone
		m.setNotice("Password changed successfully")
		return m, nil

	case RecordingStartedMsg:
		if msg.Err != nil {
			m.recording = false
			m.source = nil
			return m, m.transientError(msg.Err.Error())
		}
		m.recording = true
		m.elapsed = 0
		m.recordSeq++
		return m, recordingTickCmd(m.recordSeq)

	case RecordingTickMsg:
		if !m.recording || msg.Seq != m.recordSeq || m.source == nil {
			return m, nil
		}
		m.elapsed = m.source.Elapsed()
		return m, recordingTickCmd(m.recordSeq)

	case RecordingStoppedMsg:
		m.recording = false
		m.stopping = false
		m.source = nil
		if msg.Err != nil {
			return m, m.transientError("Error stopping recording: " + msg.Err.Error())
		}
		m.setStaged(msg.Staged)
		return m, nil

	case StagedMsg:
		if msg.Err != nil {
			return m, m.transientError(msg.Err.Error())
		}
		m.setStaged(msg.Staged)
		return m, nil

	case ProcessDoneMsg:
		m.processing = false
		m.statusText = ""
		if msg.Err != nil {
			return m, m.transientError("Error: " + msg.Err.Error())
		}
		m.showResult(msg.Result)
		m.setNotice("Processing complete")
		return m, nil

	case StatusTickMsg:
		if !m.processing || msg.Seq != m.statusSeq {
			return m, nil
		}
		m.statusText = orchestrator.StatusAt(msg.N)
		return m, statusTickCmd(m.statusSeq, msg.N+1)

	case ChatReplyMsg:
		m.chatBusy = false
		if msg.Err == nil && msg.Reply.Edit {
			m.summary = msg.Reply.Summary
		}
		m.scrollChatToEnd()
		if msg.Err != nil && !errors.Is(msg.Err, chat.ErrEmptyMessage) {
			return m, m.transientError(msg.Err.Error())
		}
		return m, nil

	case AgentsLoadedMsg:
		if msg.Err != nil {
			m.deps.Log.Warn(m.ctx, "load agents: %v", msg.Err)
			if m.view == roles.ViewAgents {
				return m, m.transientError(msg.Err.Error())
			}
			return m, nil
		}
		m.agents = msg.Agents
		if m.agentIndex >= len(m.agents) || (m.agentIndex >= 0 && !m.agents[m.agentIndex].IsActive) {
			m.agentIndex = -1
		}
		return m, nil

	case HistoryLoadedMsg:
		if msg.Err != nil {
			return m, m.transientError(msg.Err.Error())
		}
		m.history = msg.Recordings
		if m.historyIndex >= len(m.history) {
			m.historyIndex = max(0, len(m.history)-1)
		}
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) transientError(text string) tea.Cmd {
	m.errorMessage = text
	m.errorTransient = true
	m.notice = ""
	return clearTransientErrorCmd()
}

func (m *Model) setNotice(text string) {
	m.notice = text
	m.errorMessage = ""
	m.errorTransient = false
}

func (m *Model) toLogin() {
	m.screen = ScreenLogin
	m.input = inputLogin
	m.login.focus = 0
}

// enterMain switches to the main screen for u and starts loading the data
// its role can see.
func (m *Model) enterMain(u api.User) tea.Cmd {
	m.user = u
	m.role = roles.FromInt(u.Role)
	m.menu = roles.MenuFor(m.role)
	m.screen = ScreenMain
	m.input = inputNone
	m.errorMessage = ""
	m.errorTransient = false
	m.selectView(roles.ViewRecord)
	m.deps.Log.Info(m.ctx, "signed in as %s (%s)", u.Email, m.role.Badge())

	var cmds []tea.Cmd
	if m.deps.History != nil {
		cmds = append(cmds, loadHistoryCmd(m.deps.History, u.ID))
	}
	if m.role.CanManageAgents() && m.deps.Agents != nil {
		cmds = append(cmds, loadAgentsCmd(m.ctx, m.deps.Agents, u.ID))
	}
	return tea.Batch(cmds...)
}

// reset drops everything tied to the signed-in user.
func (m *Model) reset() {
	if m.source != nil {
		m.source.Cancel()
		m.source = nil
	}
	m.recording = false
	m.stopping = false
	m.deps.Flow.Clear()
	m.deps.Chat.Reset(api.Result{})
	m.user = api.User{}
	m.menu = nil
	m.staged = nil
	m.result = nil
	m.summary = ""
	m.agents = nil
	m.agentIndex = -1
	m.history = nil
	m.notice = ""
	m.chatInput.reset()
	m.path.reset()
}

// selectView points the sidebar at the first item showing v.
func (m *Model) selectView(v roles.View) {
	for i, it := range m.menu.Items() {
		if it.View == v {
			m.menuIndex = i
			m.view = v
			m.viewLabel = it.Label
			m.scroll = 0
			return
		}
	}
}

func (m *Model) setStaged(st orchestrator.Staged) {
	m.staged = &st
	m.result = nil
	m.summary = ""
	m.deps.Chat.Reset(api.Result{})
	m.setNotice("Ready to process " + st.Name)
}

func (m *Model) showResult(res api.Result) {
	m.result = &res
	m.summary = res.SummaryText()
	m.deps.Chat.Reset(res)
	m.tab = TabSummary
	m.scroll = 0
}

// openRecording loads a history entry into the result panel.
func (m *Model) openRecording(rec db.Recording) {
	res := api.Result{
		Success:             true,
		Transcription:       rec.Transcript,
		SpeechmaticsSummary: &api.SpeechmaticsSummary{Content: rec.Summary},
	}
	for _, d := range rec.Dialogues {
		res.Dialogues = append(res.Dialogues, api.Dialogue{Speaker: d.Speaker, Text: d.Text})
	}
	m.staged = nil
	m.deps.Flow.Clear()
	m.showResult(res)
	m.selectView(roles.ViewRecord)
	m.focus = FocusContent
	m.setNotice("Opened " + rec.FileName)
}

func (m Model) activeAgent() (api.Agent, bool) {
	if m.agentIndex < 0 || m.agentIndex >= len(m.agents) {
		return api.Agent{}, false
	}
	return m.agents[m.agentIndex], true
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == KeyCtrlC {
		return m.quit()
	}

	switch m.input {
	case inputLogin:
		return m.handleLoginKey(msg)
	case inputPassword:
		return m.handlePasswordKey(msg)
	case inputPath, inputChat:
		return m.handleFieldKey(msg)
	}

	if m.screen != ScreenMain {
		if msg.String() == KeyQuit {
			return m.quit()
		}
		return m, nil
	}

	switch msg.String() {
	case KeyQuit:
		return m.quit()

	case KeyTab:
		if m.focus == FocusSidebar {
			m.focus = FocusContent
		} else {
			m.focus = FocusSidebar
		}
		return m, nil
	}

	if m.focus == FocusSidebar {
		return m.handleSidebarKey(msg)
	}

	switch m.view {
	case roles.ViewRecord:
		return m.handleRecordKey(msg)
	case roles.ViewHistory:
		return m.handleHistoryKey(msg)
	case roles.ViewAccount:
		return m.handleAccountKey(msg)
	case roles.ViewAgents:
		return m.handleAgentsKey(msg)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.source != nil {
		m.source.Cancel()
	}
	m.deps.Flow.Clear()
	return m, tea.Quit
}

// Input handlers switch on the key type so typed text never matches a
// binding name.
func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.quit()
	case tea.KeyTab, tea.KeyDown:
		m.login.next()
	case tea.KeyShiftTab, tea.KeyUp:
		m.login.prev()
	case tea.KeyEnter:
		if !m.login.last() {
			m.login.next()
			return m, nil
		}
		if m.loginBusy {
			return m, nil
		}
		email, password := m.login.value(0), m.login.value(1)
		if err := session.ValidateLogin(email, password); err != nil {
			m.errorMessage = err.Error()
			m.errorTransient = false
			return m, nil
		}
		m.loginBusy = true
		m.errorMessage = ""
		return m, loginCmd(m.ctx, m.deps.Auth, email, password)
	default:
		m.login.update(msg)
	}
	return m, nil
}

func (m Model) handlePasswordKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.password.reset()
		m.input = inputNone
	case tea.KeyTab, tea.KeyDown:
		m.password.next()
	case tea.KeyShiftTab, tea.KeyUp:
		m.password.prev()
	case tea.KeyEnter:
		if !m.password.last() {
			m.password.next()
			return m, nil
		}
		if m.pwBusy {
			return m, nil
		}
		current, next, confirm := m.password.value(0), m.password.value(1), m.password.value(2)
		if err := session.ValidatePasswordChange(current, next, confirm); err != nil {
			return m, m.transientError(err.Error())
		}
		m.pwBusy = true
		return m, changePasswordCmd(m.ctx, m.deps.Auth, current, next, confirm)
	default:
		m.password.update(msg)
	}
	return m, nil
}

// handleFieldKey edits the file path or chat input.
func (m Model) handleFieldKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.path
	if m.input == inputChat {
		f = &m.chatInput
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.input = inputNone
		return m, nil
	case tea.KeyEnter:
		text := f.String()
		if m.input == inputPath {
			m.input = inputNone
			m.path.reset()
			if cleanPath(text) == "" {
				return m, nil
			}
			return m, stageCmd(m.ctx, m.deps.Flow, cleanPath(text))
		}
		return m.sendChat(text)
	default:
		f.update(msg)
	}
	return m, nil
}

func (m Model) sendChat(text string) (tea.Model, tea.Cmd) {
	if m.chatBusy {
		return m, nil
	}
	if !m.deps.Chat.Ready() {
		return m, m.transientError(chat.ErrNoTranscript.Error())
	}
	m.chatInput.reset()
	m.chatBusy = true
	return m, sendChatCmd(m.ctx, m.deps.Chat, text)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.menu.Items()
	switch msg.String() {
	case KeyJ, KeyDown:
		if m.menuIndex < len(items)-1 {
			m.menuIndex++
		}
	case KeyK, KeyUp:
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case KeyEnter:
		if m.menuIndex >= len(items) {
			return m, nil
		}
		it := items[m.menuIndex]
		m.view = it.View
		m.viewLabel = it.Label
		m.scroll = 0
		m.notice = ""
		m.focus = FocusContent
		switch it.View {
		case roles.ViewHistory:
			if m.deps.History != nil {
				return m, loadHistoryCmd(m.deps.History, m.user.ID)
			}
		case roles.ViewAgents:
			if !m.role.CanManageAgents() {
				return m, m.transientError("Access denied. Only administrators can manage agents.")
			}
			return m, loadAgentsCmd(m.ctx, m.deps.Agents, m.user.ID)
		}
	}
	return m, nil
}

func (m Model) handleRecordKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeySpace:
		return m.toggleRecording()

	case KeyCycleType:
		if m.recording {
			return m, nil
		}
		for i, t := range captureTypes {
			if t == m.captureType {
				m.captureType = captureTypes[(i+1)%len(captureTypes)]
				break
			}
		}

	case KeyOpenFile:
		if m.recording || m.processing {
			return m, nil
		}
		m.input = inputPath
		m.path.reset()

	case KeyClearFile:
		if m.processing || m.recording {
			return m, nil
		}
		m.deps.Flow.Clear()
		m.staged = nil
		m.notice = ""

	case KeyProcess, KeyEnter:
		return m.startProcessing()

	case KeyCycleLang:
		for i, l := range Languages {
			if l == m.language {
				m.language = Languages[(i+1)%len(Languages)]
				return m, nil
			}
		}
		m.language = Languages[0]

	case KeyCycleAgent:
		m.agentIndex = m.nextActiveAgent()

	case KeyTabSummary:
		m.tab, m.scroll = TabSummary, 0
	case KeyTabTranscr:
		m.tab, m.scroll = TabTranscript, 0
	case KeyTabChat:
		m.tab = TabChat
		m.scrollChatToEnd()

	case KeyChat:
		m.tab = TabChat
		m.input = inputChat
		m.scrollChatToEnd()

	case KeyUp, KeyK:
		if m.scroll > 0 {
			m.scroll--
		}
	case KeyDown, KeyJ:
		if m.scroll < m.maxScroll() {
			m.scroll++
		}
	}
	return m, nil
}

// nextActiveAgent returns the index of the next active agent, or -1 for the
// default summarizer after the last one.
func (m Model) nextActiveAgent() int {
	for i := m.agentIndex + 1; i < len(m.agents); i++ {
		if m.agents[i].IsActive {
			return i
		}
	}
	return -1
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.stopping || m.processing {
		return m, nil
	}
	if m.recording {
		m.stopping = true
		return m, stopRecordingCmd(m.ctx, m.source, m.deps.Flow)
	}
	if m.source != nil || m.deps.NewSource == nil {
		return m, nil
	}
	m.source = m.deps.NewSource(m.captureType)
	m.notice = ""
	return m, startRecordingCmd(m.ctx, m.source)
}

func (m Model) startProcessing() (tea.Model, tea.Cmd) {
	if m.processing || m.recording {
		return m, nil
	}
	if m.staged == nil {
		return m, m.transientError(orchestrator.ErrNoFile.Error())
	}
	opts := orchestrator.Options{Language: m.language, UserID: m.user.ID}
	if a, ok := m.activeAgent(); ok {
		opts.AgentID = a.ID
		opts.AgentName = a.Name
	}
	m.processing = true
	m.statusSeq++
	m.statusText = orchestrator.StatusAt(0)
	m.notice = ""
	m.errorMessage = ""
	return m, tea.Batch(
		processCmd(m.ctx, m.deps.Flow, opts),
		statusTickCmd(m.statusSeq, 1),
	)
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyJ, KeyDown:
		if m.historyIndex < len(m.history)-1 {
			m.historyIndex++
		}
	case KeyK, KeyUp:
		if m.historyIndex > 0 {
			m.historyIndex--
		}
	case KeyEnter:
		if m.historyIndex < len(m.history) && !m.processing && !m.recording {
			m.openRecording(m.history[m.historyIndex])
		}
	case KeyRefresh:
		if m.deps.History != nil {
			return m, loadHistoryCmd(m.deps.History, m.user.ID)
		}
	}
	return m, nil
}

func (m Model) handleAccountKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyPassword:
		m.password.reset()
		m.input = inputPassword
		m.notice = ""
	case KeyLogout:
		return m, logoutCmd(m.deps.Auth)
	}
	return m, nil
}

func (m Model) handleAgentsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyRefresh:
		return m, loadAgentsCmd(m.ctx, m.deps.Agents, m.user.ID)
	case KeyUp, KeyK:
		if m.scroll > 0 {
			m.scroll--
		}
	case KeyDown, KeyJ:
		if m.scroll < len(m.agents)-1 {
			m.scroll++
		}
	}
	return m, nil
}

func (m *Model) scrollChatToEnd() {
	if m.tab == TabChat {
		m.scroll = m.maxScroll()
	}
}

func (m Model) maxScroll() int {
	lines := len(m.tabLines(m.contentWidth()))
	visible := m.tabVisibleLines()
	if lines <= visible {
		return 0
	}
	return lines - visible
}
