package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"edmoserver/internal/edmoerr"
)

// OscillatorUpdate is the UPDATE_OSCILLATOR payload sent server → robot
// (spec §4.1).
type OscillatorUpdate struct {
	MotorID     uint8
	Freq        float32
	Amp         float32
	Offset      float32
	PhaseShift  float32
	Reverse     int16
	Orders      int16
}

// EncodeOscillatorUpdate serializes u in the little-endian layout
// <Bffffhh> matching the firmware's struct.pack format string.
func EncodeOscillatorUpdate(u OscillatorUpdate) []byte {
	buf := make([]byte, 1+4*4+2+2)
	buf[0] = u.MotorID
	putFloat32(buf[1:5], u.Freq)
	putFloat32(buf[5:9], u.Amp)
	putFloat32(buf[9:13], u.Offset)
	putFloat32(buf[13:17], u.PhaseShift)
	binary.LittleEndian.PutUint16(buf[17:19], uint16(u.Reverse))
	binary.LittleEndian.PutUint16(buf[19:21], uint16(u.Orders))
	return buf
}

// MotorTelemetry is the SEND_MOTOR_DATA payload received robot → server
// (spec §4.1), layout <Bfffffhhi>.
type MotorTelemetry struct {
	MotorID    uint8
	Freq       float32
	Amp        float32
	Offset     float32
	PhaseShift float32
	Phase      float32
	Reverse    int16
	Orders     int16
	Output     int32
}

const motorTelemetrySize = 1 + 4*5 + 2 + 2 + 4

// DecodeMotorTelemetry parses a SEND_MOTOR_DATA payload.
func DecodeMotorTelemetry(data []byte) (MotorTelemetry, error) {
	if len(data) < motorTelemetrySize {
		return MotorTelemetry{}, fmt.Errorf("motor telemetry payload too short (%d bytes): %w", len(data), edmoerr.ErrMalformedFrame)
	}
	return MotorTelemetry{
		MotorID:    data[0],
		Freq:       getFloat32(data[1:5]),
		Amp:        getFloat32(data[5:9]),
		Offset:     getFloat32(data[9:13]),
		PhaseShift: getFloat32(data[13:17]),
		Phase:      getFloat32(data[17:21]),
		Reverse:    int16(binary.LittleEndian.Uint16(data[21:23])),
		Orders:     int16(binary.LittleEndian.Uint16(data[23:25])),
		Output:     int32(binary.LittleEndian.Uint32(data[25:29])),
	}, nil
}

// IMURecord is one of the five sensor records inside a SEND_IMU_DATA
// payload: acceleration, gyroscope, magnetic, gravity each <LB3xfff>, and
// rotation <LB3xffff> carrying an extra Real (quaternion w) component.
type IMURecord struct {
	Name   string
	Time   uint32
	Status uint8
	X, Y, Z float32
	Real   float32 // only populated for the rotation record
}

// DecodeIMUData parses the fixed five-record SEND_IMU_DATA payload:
// acceleration, gyroscope, magnetic, gravity (each 20 bytes) followed by
// rotation (24 bytes, with an extra float32 "real"/w component).
func DecodeIMUData(data []byte) ([]IMURecord, error) {
	const plainRecordSize = 4 + 1 + 3 + 4*3 // time + status + 3 pad + xyz
	const rotationRecordSize = 4 + 1 + 3 + 4*4
	want := plainRecordSize*4 + rotationRecordSize
	if len(data) < want {
		return nil, fmt.Errorf("imu payload too short (%d bytes, want %d): %w", len(data), want, edmoerr.ErrMalformedFrame)
	}

	records := make([]IMURecord, 0, 5)
	names := []string{"acceleration", "gyroscope", "magnetic", "gravity"}

	off := 0
	for _, name := range names {
		records = append(records, decodePlainRecord(name, data[off:off+plainRecordSize]))
		off += plainRecordSize
	}
	records = append(records, decodeRotationRecord(data[off:off+rotationRecordSize]))

	return records, nil
}

func decodePlainRecord(name string, b []byte) IMURecord {
	return IMURecord{
		Name:   name,
		Time:   binary.LittleEndian.Uint32(b[0:4]),
		Status: b[4],
		X:      getFloat32(b[8:12]),
		Y:      getFloat32(b[12:16]),
		Z:      getFloat32(b[16:20]),
	}
}

func decodeRotationRecord(b []byte) IMURecord {
	return IMURecord{
		Name:   "rotation",
		Time:   binary.LittleEndian.Uint32(b[0:4]),
		Status: b[4],
		X:      getFloat32(b[8:12]),
		Y:      getFloat32(b[12:16]),
		Z:      getFloat32(b[16:20]),
		Real:   getFloat32(b[20:24]),
	}
}

// EncodeSessionStart serializes a SESSION_START payload: <L> offsetTime.
func EncodeSessionStart(offsetTime uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, offsetTime)
	return buf
}

// DecodeOffsetTime parses the single uint32 offset carried by both
// SESSION_START and GET_TIME payloads.
func DecodeOffsetTime(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("offset-time payload too short: %w", edmoerr.ErrMalformedFrame)
	}
	return binary.LittleEndian.Uint32(data[:4]), nil
}

func putFloat32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

func getFloat32(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}
