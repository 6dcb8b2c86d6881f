// Package session implements the EDMO session (spec §4.6): player
// admission and slot assignment over a min-heap, real-time tick handling,
// telemetry ingestion, reset, task-list broadcast, and the scripted-run
// program built on top of motor telemetry subscriptions.
package session

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"edmoserver/internal/codec"
	"edmoserver/internal/edmoerr"
	"edmoserver/internal/motor"
	"edmoserver/internal/obs"
	"edmoserver/internal/rtc"
	"edmoserver/internal/sessionlog"
	"edmoserver/internal/transport/fused"
)

// Task is one named, toggleable objective shown to players (spec §3, the
// original's getTasks/setTasks).
type Task struct {
	Title string `json:"Title"`
	Value bool   `json:"Value"`
}

type motorUpdateHandler func(motorID int, current, previous *codec.MotorTelemetry)

// Session holds one robot's live state: its link, motor bank, connected
// players, and optional recording log.
type Session struct {
	Identity string

	mu sync.Mutex

	link      *fused.Link
	numMotors int
	motors    []*motor.Motor

	freeSlots      slotHeap
	activePlayers  []*Player
	waitingPlayers []*Player

	motorCurrent  []*codec.MotorTelemetry
	motorPrevious []*codec.MotorTelemetry

	helpEnabled bool
	simpleMode  bool
	taskOrder   []string
	tasks       map[string]bool

	offsetTime uint32

	logDir string
	log    *sessionlog.Logger

	motorSubscribers map[int][]motorUpdateHandler

	removeSelf func(*Session)
}

// New creates a session for identity with numMotors oscillator slots,
// bound to link for wire I/O. removeSelf is invoked once the session has
// no players left (spec §4.6 "if no players remain, the session announces
// itself removable").
func New(identity string, numMotors int, link *fused.Link, logDir string, removeSelf func(*Session)) *Session {
	s := &Session{
		Identity:         identity,
		link:             link,
		numMotors:        numMotors,
		motors:           make([]*motor.Motor, numMotors),
		motorCurrent:     make([]*codec.MotorTelemetry, numMotors),
		motorPrevious:    make([]*codec.MotorTelemetry, numMotors),
		simpleMode:       true,
		tasks:            make(map[string]bool),
		logDir:           logDir,
		motorSubscribers: make(map[int][]motorUpdateHandler),
		removeSelf:       removeSelf,
	}

	for i := 0; i < numMotors; i++ {
		s.motors[i] = motor.New(uint8(i))
		s.freeSlots = append(s.freeSlots, i)
	}
	heap.Init(&s.freeSlots)

	return s
}

// Reset writes SESSION_START with the stored offsetTime, resynchronizing
// the robot's clock. Called on construction and on every fused reconnect.
func (s *Session) Reset() {
	s.mu.Lock()
	offset := s.offsetTime
	s.mu.Unlock()

	if err := s.link.Write(codec.Create(codec.SessionStart, codec.EncodeSessionStart(offset))); err != nil {
		obs.Debugf("session %s: reset write failed: %v", s.Identity, err)
	}
}

// RegisterPlayer admits a waiting player over channel, wiring its handlers
// into callbacks (the original's "append self to the peer's callback
// lists" pattern, adapted to rtc.Callbacks). Refuses with
// edmoerr.ErrSessionFull when every motor slot is already taken.
func (s *Session) RegisterPlayer(channel rtc.Channel, callbacks *rtc.Callbacks, name string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.freeSlots) == 0 {
		return nil, fmt.Errorf("session %s: %w", s.Identity, edmoerr.ErrSessionFull)
	}

	p := newPlayer(s, channel, callbacks, name)
	s.waitingPlayers = append(s.waitingPlayers, p)
	return p, nil
}

func (s *Session) playerConnected(p *Player) {
	s.mu.Lock()
	if len(s.freeSlots) == 0 {
		s.mu.Unlock()
		return
	}
	number := heap.Pop(&s.freeSlots).(int)
	s.waitingPlayers = removePlayer(s.waitingPlayers, p)
	s.activePlayers = append(s.activePlayers, p)
	s.mu.Unlock()

	p.assignNumber(number)

	s.broadcastPlayerList()
	p.send(fmt.Sprintf("TaskInfo %s", s.tasksJSON()))
	s.sendMotorParams(p)
	p.send(fmt.Sprintf("HelpEnabled %s", flagText(s.helpEnabled)))
	p.send(fmt.Sprintf("SimpleMode %s", flagText(s.simpleMode)))
}

func (s *Session) playerDisconnected(p *Player) {
	s.mu.Lock()
	s.activePlayers = removePlayer(s.activePlayers, p)
	s.waitingPlayers = append(s.waitingPlayers, p)
	if p.Number != -1 {
		heap.Push(&s.freeSlots, p.Number)
		p.Number = -1
	}
	s.mu.Unlock()

	s.broadcastPlayerList()
}

func (s *Session) playerLeft(p *Player) {
	s.mu.Lock()
	if p.Number != -1 {
		heap.Push(&s.freeSlots, p.Number)
		p.Number = -1
	}
	s.activePlayers = removePlayer(s.activePlayers, p)
	s.waitingPlayers = removePlayer(s.waitingPlayers, p)
	remaining := len(s.activePlayers) + len(s.waitingPlayers)
	s.mu.Unlock()

	if remaining == 0 && s.removeSelf != nil {
		s.removeSelf(s)
	}
}

func (s *Session) handlePlayerMessage(p *Player, text string) {
	fields := strings.Fields(text)
	if len(fields) > 0 && fields[0] == "vote" {
		p.Voted = len(fields) > 1 && fields[1] == "1"
		s.broadcastPlayerList()
		return
	}

	s.mu.Lock()
	number := p.Number
	s.mu.Unlock()

	if number < 0 || number >= s.numMotors {
		return
	}
	s.motors[number].AdjustFrom(text)
}

func (s *Session) broadcastPlayerList() {
	s.mu.Lock()
	infos := make([]PlayerInfo, 0, len(s.activePlayers))
	for _, p := range s.activePlayers {
		infos = append(infos, p.info())
	}
	recipients := append([]*Player(nil), s.activePlayers...)
	s.mu.Unlock()

	body, err := json.Marshal(infos)
	if err != nil {
		obs.Errorf("session %s: marshal player list: %v", s.Identity, err)
		return
	}
	for _, p := range recipients {
		p.send(fmt.Sprintf("PlayerInfo %s", body))
	}
}

func (s *Session) sendMotorParams(p *Player) {
	m := s.motors[p.Number]
	p.send(fmt.Sprintf("amp %v", m.State.Amp))
	p.send(fmt.Sprintf("freq %v", m.State.Freq))
	p.send(fmt.Sprintf("off %v", m.State.Offset))
	p.send(fmt.Sprintf("phb %v", m.State.PhaseShift))
}

func (s *Session) tasksJSON() string {
	s.mu.Lock()
	tasks := s.taskList()
	s.mu.Unlock()

	body, err := json.Marshal(tasks)
	if err != nil {
		return "[]"
	}
	return string(body)
}

func (s *Session) taskList() []Task {
	tasks := make([]Task, 0, len(s.taskOrder))
	for _, title := range s.taskOrder {
		tasks = append(tasks, Task{Title: title, Value: s.tasks[title]})
	}
	return tasks
}

// SetTask toggles a named task's value, then broadcasts the updated list
// to every active player. Reports false if the task is unknown.
func (s *Session) SetTask(task string, value bool) bool {
	s.mu.Lock()
	if _, exists := s.tasks[task]; !exists {
		s.mu.Unlock()
		return false
	}
	s.tasks[task] = value
	s.mu.Unlock()

	s.broadcastTaskList()
	return true
}

// AddTask registers a new task (supplementing the original's implicit,
// never-initialized task map) with an initial value of false.
func (s *Session) AddTask(title string) {
	s.mu.Lock()
	if _, exists := s.tasks[title]; !exists {
		s.taskOrder = append(s.taskOrder, title)
		s.tasks[title] = false
	}
	s.mu.Unlock()
}

func (s *Session) broadcastTaskList() {
	body := s.tasksJSON()

	s.mu.Lock()
	recipients := append([]*Player(nil), s.activePlayers...)
	s.mu.Unlock()

	for _, p := range recipients {
		p.send(fmt.Sprintf("TaskInfo %s", body))
	}
}

// SetSimpleMode updates the session-wide simple-view flag and notifies
// active players.
func (s *Session) SetSimpleMode(value bool) {
	s.mu.Lock()
	s.simpleMode = value
	recipients := append([]*Player(nil), s.activePlayers...)
	s.mu.Unlock()

	for _, p := range recipients {
		p.send(fmt.Sprintf("SimpleMode %s", flagText(value)))
	}
}

// SetHelpEnabled updates the session-wide help-button flag and notifies
// active players.
func (s *Session) SetHelpEnabled(value bool) {
	s.mu.Lock()
	s.helpEnabled = value
	recipients := append([]*Player(nil), s.activePlayers...)
	s.mu.Unlock()

	for _, p := range recipients {
		p.send(fmt.Sprintf("HelpEnabled %s", flagText(value)))
	}
}

// HasPlayers reports whether any player (active or waiting) remains.
func (s *Session) HasPlayers() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activePlayers)+len(s.waitingPlayers) > 0
}

// Tick drives the real-time update loop (spec §4.6 "Tick"): a no-op
// unless the fused link is connected, otherwise it pushes any dirty motor
// parameters then solicits fresh telemetry.
func (s *Session) Tick() {
	if !s.link.HasConnection() {
		return
	}

	s.mu.Lock()
	motors := append([]*motor.Motor(nil), s.motors...)
	s.mu.Unlock()

	for _, m := range motors {
		if !m.Dirty {
			continue
		}
		if err := s.link.Write(m.AsCommand()); err != nil {
			obs.Debugf("session %s: write oscillator update: %v", s.Identity, err)
			continue
		}
		m.Dirty = false
	}

	if err := s.link.Write(codec.Create(codec.SendMotorData, nil)); err != nil {
		obs.Debugf("session %s: request motor data: %v", s.Identity, err)
	}
	if err := s.link.Write(codec.Create(codec.SendIMUData, nil)); err != nil {
		obs.Debugf("session %s: request imu data: %v", s.Identity, err)
	}
}

// HandleCommand ingests a decoded command received over the fused link
// (spec §4.6 "Telemetry ingestion"). Passed to fused.New as onMessage.
func (s *Session) HandleCommand(cmd codec.Command) {
	switch cmd.Instruction {
	case codec.GetTime:
		offset, err := codec.DecodeOffsetTime(cmd.Data)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.offsetTime = offset
		s.mu.Unlock()
	case codec.SendMotorData:
		s.ingestMotorTelemetry(cmd.Data)
	case codec.SendIMUData:
		s.ingestIMUTelemetry(cmd.Data)
	}
}

func (s *Session) ingestMotorTelemetry(data []byte) {
	t, err := codec.DecodeMotorTelemetry(data)
	if err != nil {
		return
	}
	if int(t.MotorID) >= s.numMotors {
		return
	}

	s.mu.Lock()
	previous := s.motorCurrent[t.MotorID]
	s.motorCurrent[t.MotorID] = &t
	s.motorPrevious[t.MotorID] = previous
	subscribers := append([]motorUpdateHandler(nil), s.motorSubscribers[int(t.MotorID)]...)
	logger := s.log
	s.mu.Unlock()

	if logger != nil {
		angle := motorAngle(t)
		err := logger.Write("motor", []string{
			strconv.Itoa(int(t.MotorID)),
			formatFloat(float64(angle)),
			formatFloat(float64(t.Freq)),
			formatFloat(float64(t.Amp)),
			formatFloat(float64(t.Offset)),
			formatFloat(float64(t.PhaseShift)),
			formatFloat(float64(t.Phase)),
			strconv.Itoa(int(t.Output)),
		})
		if err != nil {
			obs.Errorf("session %s: write motor log row: %v", s.Identity, err)
		}
	}

	for _, fn := range subscribers {
		fn(int(t.MotorID), &t, previous)
	}
}

func (s *Session) ingestIMUTelemetry(data []byte) {
	records, err := codec.DecodeIMUData(data)
	if err != nil {
		return
	}

	s.mu.Lock()
	logger := s.log
	s.mu.Unlock()
	if logger == nil {
		return
	}

	for _, r := range records {
		err := logger.Write("imu", []string{
			r.Name,
			strconv.FormatUint(uint64(r.Time), 10),
			strconv.Itoa(int(r.Status)),
			formatFloat(float64(r.X)),
			formatFloat(float64(r.Y)),
			formatFloat(float64(r.Z)),
			formatFloat(float64(r.Real)),
		})
		if err != nil {
			obs.Errorf("session %s: write imu log row: %v", s.Identity, err)
			return
		}
	}
}

// SubscribeMotorUpdates registers fn to be called with (motorID, current,
// previous) whenever fresh telemetry arrives for motorID. Used by the
// scripted-run program to detect sweep completion.
func (s *Session) SubscribeMotorUpdates(motorID int, fn motorUpdateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.motorSubscribers[motorID] = append(s.motorSubscribers[motorID], fn)
}

// UnsubscribeMotorUpdates clears all subscribers for motorID.
func (s *Session) UnsubscribeMotorUpdates(motorID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.motorSubscribers, motorID)
}

// NumMotors returns the oscillator slot count this session was created
// with, used by the admin console's "stop"/"reset" commands to iterate
// every motor.
func (s *Session) NumMotors() int {
	return s.numMotors
}

// UpdateMotor applies a raw player-style "TOKEN VALUE" command directly to
// a motor, used by the admin console (C10) and scripted programs.
func (s *Session) UpdateMotor(motorID int, command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if motorID < 0 || motorID >= s.numMotors {
		return
	}
	s.motors[motorID].AdjustFrom(command)
}

// StartLog begins a recording session: a fresh sessionlog.Logger with the
// standard imu/motor/program channels (spec §4.8).
func (s *Session) StartLog() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log != nil {
		return nil
	}

	logger, err := sessionlog.New(s.logDir, s.Identity)
	if err != nil {
		return fmt.Errorf("start log for session %s: %w", s.Identity, err)
	}

	if err := logger.Create("imu", []string{"type", "imutime", "status", "x", "y", "z", "real"}); err != nil {
		return err
	}
	if err := logger.Create("motor", []string{"mid", "angle", "freq", "amp", "offset", "shift", "phase", "output"}); err != nil {
		return err
	}
	if err := logger.Create("program", []string{"anomaly", "sequence"}); err != nil {
		return err
	}

	s.log = logger
	return nil
}

// StopLog flushes and closes the active recording log, if any.
func (s *Session) StopLog() error {
	s.mu.Lock()
	logger := s.log
	s.log = nil
	s.mu.Unlock()

	if logger == nil {
		return nil
	}
	return logger.Close()
}

// LogProgramRow appends a row to the "program" channel, used by the
// scripted-run program to tag which sweep phase produced which telemetry.
func (s *Session) LogProgramRow(anomaly, sequence string) {
	s.mu.Lock()
	logger := s.log
	s.mu.Unlock()
	if logger == nil {
		return
	}
	if err := logger.Write("program", []string{anomaly, sequence}); err != nil {
		obs.Errorf("session %s: write program log row: %v", s.Identity, err)
	}
}

// Close tears down every player channel and flushes any active log,
// mirroring the original's EDMOSession.close().
func (s *Session) Close() {
	s.mu.Lock()
	players := append(append([]*Player(nil), s.activePlayers...), s.waitingPlayers...)
	logger := s.log
	s.log = nil
	s.mu.Unlock()

	if logger != nil {
		if err := logger.Close(); err != nil {
			obs.Errorf("session %s: close log: %v", s.Identity, err)
		}
	}
	for _, p := range players {
		if err := p.Channel.Close(); err != nil {
			obs.Debugf("session %s: close player channel: %v", s.Identity, err)
		}
	}
}

// Info is the session-level summary exposed over HTTP and the admin
// console (spec §4.6 getSessionInfo/getDetailedInfo, §6).
type Info struct {
	RobotID    string   `json:"robotID"`
	Names      []string `json:"names"`
	HelpNumber int      `json:"HelpNumber"`
}

// GetSessionInfo mirrors the original's getSessionInfo().
func (s *Session) GetSessionInfo() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.activePlayers))
	helpCount := 0
	for _, p := range s.activePlayers {
		names = append(names, p.Name)
		if p.Voted {
			helpCount++
		}
	}

	return Info{RobotID: s.Identity, Names: names, HelpNumber: helpCount}
}

// DetailedInfo is the fuller per-session view (spec §4.6 getDetailedInfo,
// §6 "GET /sessions/{identity}").
type DetailedInfo struct {
	RobotID     string       `json:"robotID"`
	Players     []PlayerInfo `json:"players"`
	Tasks       []Task       `json:"tasks"`
	HelpEnabled bool         `json:"helpEnabled"`
}

// GetDetailedInfo mirrors the original's getDetailedInfo().
func (s *Session) GetDetailedInfo() DetailedInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make([]PlayerInfo, 0, len(s.activePlayers))
	for _, p := range s.activePlayers {
		players = append(players, p.info())
	}

	return DetailedInfo{
		RobotID:     s.Identity,
		Players:     players,
		Tasks:       s.taskList(),
		HelpEnabled: s.helpEnabled,
	}
}

func motorAngle(t codec.MotorTelemetry) float32 {
	state := motor.State{Amp: t.Amp, Reverse: t.Reverse != 0, Phase: t.Phase, PhaseShift: t.PhaseShift}
	return state.Angle()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}

func flagText(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
