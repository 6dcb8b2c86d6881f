package session

import (
	"time"

	"edmoserver/internal/codec"
)

// motorSweep drives one motor through a full oscillation and detects
// completion: both swing extremes crossed, then a sign-crossing of angle
// (spec §4.6 "Scripted runs"), grounded in the original's
// EDMOMotorProgram.onMotorUpdate.
type motorSweep struct {
	motorID int
	session *Session

	reverse    *bool
	endPassPos bool
	endPassNeg bool
	done       chan struct{}
}

func newMotorSweep(s *Session, motorID int) *motorSweep {
	return &motorSweep{motorID: motorID, session: s, done: make(chan struct{})}
}

// Run starts the sweep at the given frequency/amplitude and blocks until
// the completion detector fires, then zeros the motor and waits settle
// before returning.
func (m *motorSweep) Run(freq, amp float64, settle time.Duration) {
	m.session.SubscribeMotorUpdates(m.motorID, m.onMotorUpdate)
	defer m.session.UnsubscribeMotorUpdates(m.motorID)

	m.session.UpdateMotor(m.motorID, fmtToken("freq", freq))
	m.session.UpdateMotor(m.motorID, fmtToken("amp", amp))

	<-m.done

	m.session.UpdateMotor(m.motorID, "freq 0")
	m.session.UpdateMotor(m.motorID, "amp 0")

	time.Sleep(settle)
}

func (m *motorSweep) onMotorUpdate(motorID int, current, previous *codec.MotorTelemetry) {
	if motorID != m.motorID || previous == nil {
		return
	}

	a1 := float64(motorAngle(*current))
	a2 := float64(motorAngle(*previous))
	if a1 == a2 {
		return
	}

	goingDown := a1 < a2
	if m.reverse == nil {
		m.reverse = &goingDown
	} else if *m.reverse != goingDown {
		m.reverse = &goingDown
		switch {
		case a1 >= 80:
			m.endPassPos = true
		case a1 <= -80:
			m.endPassNeg = true
		}
	}

	crossedZero := (a1 <= 0 && a2 >= 0) || (a1 >= 0 && a2 <= 0)
	if crossedZero && m.endPassPos && m.endPassNeg {
		select {
		case <-m.done:
		default:
			close(m.done)
		}
	}
}

// RunSweep performs a single-motor scripted sweep and blocks until it
// completes. Exposed for the admin console's "run <motorId>" command.
func (s *Session) RunSweep(motorID int) {
	newMotorSweep(s, motorID).Run(0.05, 90, 0)
}

// defaultSweepFreq/defaultSweepAmp/interPhaseSettle are the original's
// hardcoded scripted-run constants (EDMOMotorProgram.run defaults,
// EDMOProgram.run's 2-second pause).
const (
	defaultSweepFreq = 0.05
	defaultSweepAmp  = 90
	interPhaseSettle = 2 * time.Second
	postMotorSettle  = 2 * time.Second
)

// RunProgram performs the multi-motor scripted program (spec §4.6
// "Multi-motor scripted program"): count repetitions of three sequential
// single-motor sweeps (motors 0, 1, 2) followed by a concurrent run of all
// three, each repetition logged under anomaly and bracketed by
// StartLog/StopLog.
func (s *Session) RunProgram(anomaly string, count int) {
	for i := 0; i < count; i++ {
		if err := s.StartLog(); err != nil {
			return
		}
		s.Reset()

		s.LogProgramRow(anomaly, "run0")
		sweep0 := newMotorSweep(s, 0)
		sweep0.Run(defaultSweepFreq, defaultSweepAmp, postMotorSettle)

		s.LogProgramRow(anomaly, "run1")
		sweep1 := newMotorSweep(s, 1)
		sweep1.Run(defaultSweepFreq, defaultSweepAmp, postMotorSettle)

		s.LogProgramRow(anomaly, "run2")
		sweep2 := newMotorSweep(s, 2)
		sweep2.Run(defaultSweepFreq, defaultSweepAmp, postMotorSettle)

		s.LogProgramRow(anomaly, "run012")
		runConcurrentSweeps(s, []int{0, 1, 2}, postMotorSettle)

		if err := s.StopLog(); err != nil {
			return
		}

		if i < count-1 {
			time.Sleep(interPhaseSettle)
		}
	}
}

func runConcurrentSweeps(s *Session, motorIDs []int, settle time.Duration) {
	done := make(chan struct{}, len(motorIDs))
	for _, id := range motorIDs {
		go func(id int) {
			newMotorSweep(s, id).Run(defaultSweepFreq, defaultSweepAmp, settle)
			done <- struct{}{}
		}(id)
	}
	for range motorIDs {
		<-done
	}
}

func fmtToken(token string, value float64) string {
	return token + " " + formatFloat(value)
}
