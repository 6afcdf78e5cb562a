package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwulff/calo/internal/db"
	"github.com/jwulff/calo/internal/recorder"
	"github.com/jwulff/calo/internal/report"
	"github.com/jwulff/calo/internal/state"
	"github.com/jwulff/calo/internal/ui"
	"go.uber.org/zap"

	tea "github.com/charmbracelet/bubbletea"
)

const storageTimeout = 5 * time.Second

// Tab is the active view.
type Tab int

const (
	TabDay Tab = iota
	TabWeek
	TabMonth
)

func (t Tab) String() string {
	switch t {
	case TabDay:
		return "Today"
	case TabWeek:
		return "Week"
	case TabMonth:
		return "Month"
	}
	return "?"
}

type inputMode int

const (
	inputNone inputMode = iota
	inputQuantity
	inputAPIKey
)

// Recorder is the recording pipeline as seen by the TUI.
type Recorder interface {
	State() recorder.State
	Start(ctx context.Context) error
	Stop(ctx context.Context) (recorder.Result, error)
	Recheck(ctx context.Context) error
	Abort()
}

// Store is the entry store as seen by the TUI.
type Store interface {
	EntriesForDate(ctx context.Context, date string) ([]db.FoodEntry, error)
	UpdateQuantity(ctx context.Context, id int64, quantity float64) (db.FoodEntry, error)
	Delete(ctx context.Context, id int64) error
}

// Deps wires the model to the rest of calo.
type Deps struct {
	Recorder Recorder
	Store    Store
	State    *state.Container
	SaveKey  func(key string) error
	Copy     func(text string) error
	Now      func() time.Time
	Log      *zap.Logger
}

// Model is the root bubbletea model for the calo TUI.
type Model struct {
	rec      Recorder
	store    Store
	state    *state.Container
	saveKey  func(string) error
	copyText func(string) error
	now      func() time.Time
	log      *zap.Logger

	// Views
	tab        Tab
	entries    []db.FoodEntry // viewed day, mirrored from the state container
	week       []report.DayTotal
	weekDate   string
	buckets    []report.WeekBucket
	monthYear  int
	monthMonth time.Month
	selected   int

	// Recording state
	recState recorder.State

	// Input prompt
	input    inputMode
	inputBuf string
	editID   int64

	// Errors
	errorMessage   string
	errorTransient bool

	// Status
	statusText string

	width  int
	height int
}

// New creates a Model viewing the container's day.
func New(d Deps) Model {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	date := d.State.Date()
	if date == "" {
		date = report.FormatDate(d.Now())
		d.State.ReplaceDay(date, nil)
	}
	t, _ := report.ParseDate(date)

	m := Model{
		rec:        d.Recorder,
		store:      d.Store,
		state:      d.State,
		saveKey:    d.SaveKey,
		copyText:   d.Copy,
		now:        d.Now,
		log:        d.Log,
		entries:    d.State.Entries(),
		weekDate:   date,
		monthYear:  t.Year(),
		monthMonth: t.Month(),
		recState:   d.Recorder.State(),
		statusText: "Press Space to record a meal",
	}
	if d.State.APIKey() == "" {
		m.statusText = "No OpenAI API key. Press s to set one."
	}
	return m
}

// Init loads the viewed day from the store.
func (m Model) Init() tea.Cmd {
	return loadDayCmd(m.store, m.state, m.state.Date())
}

// loadDayCmd hydrates the state container with date.
func loadDayCmd(store Store, st *state.Container, date string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()
		return DayLoadedMsg{Date: date, Err: st.Hydrate(ctx, store, date)}
	}
}

// loadWeekCmd loads the week containing date.
func loadWeekCmd(store Store, date string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()
		days, err := report.Week(ctx, store, date)
		return WeekLoadedMsg{Date: date, Days: days, Err: err}
	}
}

// loadMonthCmd loads and buckets a month.
func loadMonthCmd(store Store, year int, month time.Month) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()
		buckets, err := report.Month(ctx, store, year, month)
		return MonthLoadedMsg{Year: year, Month: month, Buckets: buckets, Err: err}
	}
}

// startCmd starts a recording. The capture outlives the command, so it is
// not bound to a short context.
func startCmd(rec Recorder) tea.Cmd {
	return func() tea.Msg {
		return RecordingStartedMsg{Err: rec.Start(context.Background())}
	}
}

// stopCmd stops the recording and runs the pipeline.
func stopCmd(rec Recorder) tea.Cmd {
	return func() tea.Msg {
		res, err := rec.Stop(context.Background())
		return ProcessedMsg{Result: res, Err: err}
	}
}

func recheckCmd(rec Recorder) tea.Cmd {
	return func() tea.Msg {
		return PermissionCheckedMsg{Err: rec.Recheck(context.Background())}
	}
}

func updateQuantityCmd(store Store, id int64, qty float64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()
		e, err := store.UpdateQuantity(ctx, id, qty)
		return EntryUpdatedMsg{Entry: e, Err: err}
	}
}

func deleteCmd(store Store, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()
		return EntryDeletedMsg{ID: id, Err: store.Delete(ctx, id)}
	}
}

func saveKeyCmd(save func(string) error, key string) tea.Cmd {
	return func() tea.Msg {
		return APIKeySavedMsg{Key: key, Err: save(key)}
	}
}

func copyCmd(copyText func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Err: copyText(text)}
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
		if m.input != inputNone {
			return m.handleInput(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case DayLoadedMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		m.entries = m.state.Entries()
		m.clampSelection()
		return m, nil

	case WeekLoadedMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		if msg.Date == m.weekDate {
			m.week = msg.Days
			m.clampSelection()
		}
		return m, nil

	case MonthLoadedMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		if msg.Year == m.monthYear && msg.Month == m.monthMonth {
			m.buckets = msg.Buckets
			m.clampSelection()
		}
		return m, nil

	case RecordingStartedMsg:
		m.recState = m.rec.State()
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		m.clearError()
		m.statusText = "Recording. Describe your meal, then press Space."
		return m, nil

	case ProcessedMsg:
		m.recState = m.rec.State()
		m.entries = m.state.Entries()
		m.clampSelection()
		m.statusText = resultStatus(msg.Result)
		var cmds []tea.Cmd
		if msg.Err != nil {
			m.log.Warn("pipeline run failed", zap.String("run", msg.Result.RunID), zap.Error(msg.Err))
			cmds = append(cmds, m.setError(msg.Err))
		}
		if m.tab != TabDay {
			cmds = append(cmds, m.loadTab())
		}
		return m, tea.Batch(cmds...)

	case PermissionCheckedMsg:
		m.recState = m.rec.State()
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		m.clearError()
		m.statusText = "Microphone ready"
		return m, nil

	case EntryUpdatedMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		m.state.Update(msg.Entry)
		m.entries = m.state.Entries()
		m.statusText = fmt.Sprintf("Updated %s to %g%s", msg.Entry.Name, msg.Entry.Quantity, msg.Entry.Unit)
		return m, nil

	case EntryDeletedMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		m.state.Remove(msg.ID)
		m.entries = m.state.Entries()
		m.clampSelection()
		m.statusText = "Entry deleted"
		return m, nil

	case APIKeySavedMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		m.state.SetAPIKey(msg.Key)
		m.clearError()
		m.statusText = "API key saved"
		return m, nil

	case CopiedMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		m.statusText = "Day summary copied to clipboard"
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

// setError shows err in the error bar. Sticky errors stay until the user
// fixes the cause; the rest clear after a few seconds.
func (m *Model) setError(err error) tea.Cmd {
	m.errorMessage = recorder.UserMessage(err)
	if recorder.Sticky(err) {
		m.errorTransient = false
		return nil
	}
	m.errorTransient = true
	return clearTransientErrorCmd()
}

func (m *Model) clearError() {
	m.errorMessage = ""
	m.errorTransient = false
}

func resultStatus(res recorder.Result) string {
	switch {
	case len(res.Entries) == 0 && len(res.Skipped) == 0:
		return "Nothing logged"
	case len(res.Skipped) == 0:
		return fmt.Sprintf("Logged %d item(s)", len(res.Entries))
	}
	names := make([]string, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		names = append(names, s.Item.Name)
	}
	return fmt.Sprintf("Logged %d item(s), no data for: %s", len(res.Entries), strings.Join(names, ", "))
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		m.rec.Abort()
		return m, tea.Quit

	case KeySpace:
		switch m.recState {
		case recorder.Idle, recorder.Denied:
			m.recState = recorder.RequestingPermission
			m.statusText = "Opening microphone..."
			return m, startCmd(m.rec)
		case recorder.Recording:
			m.recState = recorder.Processing
			m.statusText = "Processing..."
			return m, stopCmd(m.rec)
		}
		return m, nil

	case KeyTab:
		return m, m.switchTab((m.tab + 1) % 3)

	case KeyShiftTab:
		return m, m.switchTab((m.tab + 2) % 3)

	case KeyTabDay:
		return m, m.switchTab(TabDay)

	case KeyTabWeek:
		return m, m.switchTab(TabWeek)

	case KeyTabMonth:
		return m, m.switchTab(TabMonth)

	case KeyJ, KeyDown:
		if m.selected < m.rowCount()-1 {
			m.selected++
		}
		return m, nil

	case KeyK, KeyUp:
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case KeyEnter:
		return m, m.drillDown()

	case KeyH, KeyLeft:
		return m, m.shift(-1)

	case KeyL, KeyRight:
		return m, m.shift(1)

	case KeyToday:
		today := report.FormatDate(m.now())
		m.weekDate = today
		m.monthYear, m.monthMonth = m.now().Year(), m.now().Month()
		m.selected = 0
		if m.tab == TabDay {
			return m, loadDayCmd(m.store, m.state, today)
		}
		return m, m.loadTab()

	case KeyEdit:
		if m.tab != TabDay || m.selected >= len(m.entries) {
			return m, nil
		}
		e := m.entries[m.selected]
		m.input = inputQuantity
		m.editID = e.ID
		m.inputBuf = strconv.FormatFloat(e.Quantity, 'f', -1, 64)
		return m, nil

	case KeyDelete:
		if m.tab != TabDay || m.selected >= len(m.entries) {
			return m, nil
		}
		return m, deleteCmd(m.store, m.entries[m.selected].ID)

	case KeySettings:
		m.input = inputAPIKey
		m.inputBuf = ""
		return m, nil

	case KeyRecheck:
		if m.recState != recorder.Denied {
			return m, nil
		}
		return m, recheckCmd(m.rec)

	case KeyCopy:
		if m.copyText == nil {
			return m, nil
		}
		day := report.DayTotal{Date: m.state.Date(), Entries: m.entries, Totals: report.SumEntries(m.entries)}
		return m, copyCmd(m.copyText, report.DaySummary(day))
	}

	return m, nil
}

// handleInput edits the prompt buffer.
func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input = inputNone
		m.inputBuf = ""
		return m, nil

	case tea.KeyBackspace:
		if r := []rune(m.inputBuf); len(r) > 0 {
			m.inputBuf = string(r[:len(r)-1])
		}
		return m, nil

	case tea.KeyRunes:
		m.inputBuf += string(msg.Runes)
		return m, nil

	case tea.KeyEnter:
		mode, buf := m.input, strings.TrimSpace(m.inputBuf)
		m.input = inputNone
		m.inputBuf = ""

		switch mode {
		case inputQuantity:
			qty, err := strconv.ParseFloat(buf, 64)
			if err != nil || qty < 0 {
				return m, m.setError(fmt.Errorf("invalid quantity %q", buf))
			}
			return m, updateQuantityCmd(m.store, m.editID, qty)
		case inputAPIKey:
			if buf == "" || m.saveKey == nil {
				return m, nil
			}
			return m, saveKeyCmd(m.saveKey, buf)
		}
	}
	return m, nil
}

func (m *Model) switchTab(t Tab) tea.Cmd {
	if t == m.tab {
		return nil
	}
	switch t {
	case TabWeek:
		if m.tab == TabDay {
			m.weekDate = m.state.Date()
		}
	case TabMonth:
		if d, err := report.ParseDate(m.weekDate); err == nil {
			m.monthYear, m.monthMonth = d.Year(), d.Month()
		}
	}
	m.tab = t
	m.selected = 0
	return m.loadTab()
}

func (m Model) loadTab() tea.Cmd {
	switch m.tab {
	case TabWeek:
		return loadWeekCmd(m.store, m.weekDate)
	case TabMonth:
		return loadMonthCmd(m.store, m.monthYear, m.monthMonth)
	}
	return loadDayCmd(m.store, m.state, m.state.Date())
}

// drillDown opens the day under the cursor from the week view, or the week
// under the cursor from the month view.
func (m *Model) drillDown() tea.Cmd {
	switch m.tab {
	case TabWeek:
		if m.selected >= len(m.week) {
			return nil
		}
		date := m.week[m.selected].Date
		m.tab = TabDay
		m.selected = 0
		return loadDayCmd(m.store, m.state, date)
	case TabMonth:
		if m.selected >= len(m.buckets) {
			return nil
		}
		m.weekDate = m.buckets[m.selected].StartDate()
		m.tab = TabWeek
		m.selected = 0
		return loadWeekCmd(m.store, m.weekDate)
	}
	return nil
}

// shift moves the viewed period back or forward.
func (m *Model) shift(dir int) tea.Cmd {
	m.selected = 0
	switch m.tab {
	case TabDay:
		date, err := report.AddDays(m.state.Date(), dir)
		if err != nil {
			return m.setError(err)
		}
		return loadDayCmd(m.store, m.state, date)
	case TabWeek:
		date, err := report.AddDays(m.weekDate, 7*dir)
		if err != nil {
			return m.setError(err)
		}
		m.weekDate = date
		return loadWeekCmd(m.store, date)
	case TabMonth:
		first := time.Date(m.monthYear, m.monthMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, dir, 0)
		m.monthYear, m.monthMonth = first.Year(), first.Month()
		return loadMonthCmd(m.store, m.monthYear, m.monthMonth)
	}
	return nil
}

func (m Model) rowCount() int {
	switch m.tab {
	case TabWeek:
		return len(m.week)
	case TabMonth:
		return len(m.buckets)
	}
	return len(m.entries)
}

func (m *Model) clampSelection() {
	if n := m.rowCount(); m.selected >= n {
		m.selected = max(0, n-1)
	}
}

func (m Model) contentLines() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + dividers(2) + total(1) + error/input(1) + footer(1)
	return max(5, m.height-7)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	switch m.tab {
	case TabWeek:
		sections = append(sections, m.renderWeek())
	case TabMonth:
		sections = append(sections, m.renderMonth())
	default:
		sections = append(sections, m.renderDay())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.input != inputNone {
		sections = append(sections, m.renderInput())
	} else if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("CALO")

	var tabs []string
	for _, t := range []Tab{TabDay, TabWeek, TabMonth} {
		label := fmt.Sprintf("%d %s", int(t)+1, t)
		if t == m.tab {
			tabs = append(tabs, ui.TabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, ui.TabStyle.Render(label))
		}
	}

	var period string
	switch m.tab {
	case TabDay:
		period = m.state.Date()
	case TabWeek:
		if d, err := report.ParseDate(m.weekDate); err == nil {
			y, w := d.ISOWeek()
			period = fmt.Sprintf("week %d/%d from %s", w, y, report.FormatDate(report.WeekStart(d)))
		}
	case TabMonth:
		period = fmt.Sprintf("%s %d", m.monthMonth, m.monthYear)
	}

	return title + "  " + strings.Join(tabs, "  ") + "  " + ui.DateStyle.Render(period)
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.recState {
	case recorder.Recording:
		dot = ui.RecordingDotStyle.Render("● REC")
	case recorder.Processing:
		dot = ui.SpinnerStyle.Render("⟳ PROCESSING")
	case recorder.RequestingPermission:
		dot = ui.SpinnerStyle.Render("… MIC")
	case recorder.Denied:
		dot = ui.DeniedStyle.Render("✕ MIC DENIED")
	default:
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}
	return dot + "  " + ui.DimStyle.Render(m.statusText)
}

func (m Model) renderDay() string {
	height := m.contentLines()
	var lines []string

	if len(m.entries) == 0 {
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Nothing logged for this day."))
		lines = append(lines, ui.DimStyle.Render("  Press Space and describe what you ate."))
	} else {
		start := max(0, m.selected-height+1)
		end := min(len(m.entries), start+height)
		for i := start; i < end; i++ {
			lines = append(lines, m.renderEntry(m.entries[i], i == m.selected))
		}
	}

	lines = fitHeight(lines, height)
	total := report.SumEntries(m.entries)
	lines = append(lines, ui.TotalStyle.Render("  Total  ")+ui.KcalStyle.Render(fmt.Sprintf("%.0f kcal", total.Calories))+
		ui.MacroStyle.Render(fmt.Sprintf("  P %.1fg  C %.1fg  F %.1fg", total.Protein, total.Carbs, total.Fat)))
	return strings.Join(lines, "\n")
}

func (m Model) renderEntry(e db.FoodEntry, selected bool) string {
	nameW := max(12, m.width-56)
	name := truncateToWidth(e.Name, nameW)
	qty := fmt.Sprintf("%g%s", e.Quantity, e.Unit)

	row := fmt.Sprintf("%-*s %9s ", nameW, name, qty)
	kcal := fmt.Sprintf("%6.0f kcal", e.Calories)
	macros := fmt.Sprintf("  P %5.1f  C %5.1f  F %5.1f", e.Protein, e.Carbs, e.Fat)

	if selected {
		return ui.SelectedStyle.Render("> "+row) + ui.KcalStyle.Render(kcal) + ui.MacroStyle.Render(macros)
	}
	return "  " + row + ui.KcalStyle.Render(kcal) + ui.MacroStyle.Render(macros)
}

func (m Model) renderWeek() string {
	height := m.contentLines()
	var lines []string

	peak := 0.0
	var total report.Totals
	for _, d := range m.week {
		peak = max(peak, d.Totals.Calories)
		total = total.Add(d.Totals)
	}

	barW := max(5, m.width-60)
	for i, d := range m.week {
		weekday := ""
		if t, err := report.ParseDate(d.Date); err == nil {
			weekday = t.Weekday().String()[:3]
		}
		row := fmt.Sprintf("%s %s %6.0f kcal", weekday, d.Date, d.Totals.Calories)
		macros := fmt.Sprintf("  P %5.1f  C %5.1f  F %5.1f  ", d.Totals.Protein, d.Totals.Carbs, d.Totals.Fat)
		bar := ui.BarStyle.Render(strings.Repeat("█", barLen(d.Totals.Calories, peak, barW)))

		if i == m.selected {
			lines = append(lines, ui.SelectedStyle.Render("> "+row)+ui.MacroStyle.Render(macros)+bar)
		} else {
			lines = append(lines, "  "+row+ui.MacroStyle.Render(macros)+bar)
		}
	}
	if len(m.week) == 0 {
		lines = append(lines, ui.DimStyle.Render("  Loading..."))
	}

	lines = fitHeight(lines, height)
	lines = append(lines, ui.TotalStyle.Render("  Week   ")+ui.KcalStyle.Render(fmt.Sprintf("%.0f kcal", total.Calories))+
		ui.MacroStyle.Render(fmt.Sprintf("  avg %.0f kcal/day", total.Calories/7)))
	return strings.Join(lines, "\n")
}

func (m Model) renderMonth() string {
	height := m.contentLines()
	var lines []string

	var total report.Totals
	for i, b := range m.buckets {
		total = total.Add(b.Totals)
		row := fmt.Sprintf("W%02d  %s  %dd  %7.0f kcal", b.ISOWeek, b.StartDate(), b.DaysInMonth, b.Totals.Calories)
		avg := fmt.Sprintf("  avg %5.0f kcal/day  P %5.1f  C %5.1f  F %5.1f",
			b.DailyAverage.Calories, b.DailyAverage.Protein, b.DailyAverage.Carbs, b.DailyAverage.Fat)
		if i == m.selected {
			lines = append(lines, ui.SelectedStyle.Render("> "+row)+ui.MacroStyle.Render(avg))
		} else {
			lines = append(lines, "  "+row+ui.MacroStyle.Render(avg))
		}
	}
	if len(m.buckets) == 0 {
		lines = append(lines, ui.DimStyle.Render("  Loading..."))
	}

	lines = fitHeight(lines, height)
	lines = append(lines, ui.TotalStyle.Render("  Month  ")+ui.KcalStyle.Render(fmt.Sprintf("%.0f kcal", total.Calories)))
	return strings.Join(lines, "\n")
}

func (m Model) renderInput() string {
	switch m.input {
	case inputQuantity:
		return ui.InputLabelStyle.Render("New quantity: ") + ui.InputStyle.Render(m.inputBuf+"▌") +
			ui.DimStyle.Render("  Enter save, Esc cancel")
	case inputAPIKey:
		masked := strings.Repeat("•", len([]rune(m.inputBuf)))
		return ui.InputLabelStyle.Render("OpenAI API key: ") + ui.InputStyle.Render(masked+"▌") +
			ui.DimStyle.Render("  Enter save, Esc cancel")
	}
	return ""
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string
	key := func(k, desc string) {
		parts = append(parts, ui.FooterKeyStyle.Render(k)+ui.FooterDescStyle.Render(" "+desc))
	}

	switch m.recState {
	case recorder.Recording:
		key("Space", "Stop")
	case recorder.Denied:
		key("r", "Retry mic")
	default:
		key("Space", "Record")
	}
	key("Tab", "View")
	key("h/l", "Prev/Next")
	key("j/k", "Nav")

	switch m.tab {
	case TabDay:
		key("e", "Edit")
		key("d", "Delete")
		key("c", "Copy")
	default:
		key("Enter", "Open")
	}
	key("s", "API key")
	key("q", "Quit")

	return strings.Join(parts, "  ")
}

// Helpers

func barLen(v, peak float64, width int) int {
	if peak <= 0 || v <= 0 {
		return 0
	}
	return max(1, int(v/peak*float64(width)))
}

func fitHeight(lines []string, height int) []string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return lines
}

func truncateToWidth(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}
