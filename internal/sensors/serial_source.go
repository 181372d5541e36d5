// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/imu"
)

// Proprietary sentence types emitted by the wearable's microcontroller:
//
//	$PSMA,<timestamp_ns>,<x>,<y>,<z>*CS   linear acceleration, m/s²
//	$PSMG,<timestamp_ns>,<x>,<y>,<z>*CS   angular velocity, rad/s
const (
	TypeAccelSentence = "SMA"
	TypeGyroSentence  = "SMG"
)

// MotionSentence is one decoded $PSMA or $PSMG sentence.
type MotionSentence struct {
	nmea.BaseSentence
	Sample imu.Sample
}

var motionParser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		TypeAccelSentence: parseMotion(imu.LinearAcceleration),
		TypeGyroSentence:  parseMotion(imu.AngularVelocity),
	},
}

func parseMotion(kind imu.Kind) nmea.ParserFunc {
	return func(s nmea.BaseSentence) (nmea.Sentence, error) {
		p := nmea.NewParser(s)
		m := MotionSentence{
			BaseSentence: s,
			Sample: imu.Sample{
				Kind:        kind,
				TimestampNs: p.Int64(0, "timestamp"),
				X:           p.Float64(1, "x"),
				Y:           p.Float64(2, "y"),
				Z:           p.Float64(3, "z"),
			},
		}
		return m, p.Err()
	}
}

// ParseSentence decodes a single motion sentence. Standard NMEA sentences
// that are not motion data return an error.
func ParseSentence(line string) (imu.Sample, error) {
	s, err := motionParser.Parse(strings.TrimSpace(line))
	if err != nil {
		return imu.Sample{}, err
	}
	m, ok := s.(MotionSentence)
	if !ok {
		return imu.Sample{}, fmt.Errorf("unexpected sentence type %q", s.DataType())
	}
	return m.Sample, nil
}

// SerialSource reads motion sentences from a UART link.
type SerialSource struct {
	*Hub
	opts serial.OpenOptions
}

func NewSerialSource(port string, baud uint) *SerialSource {
	return &SerialSource{
		Hub: NewHub(imu.Kinds...),
		opts: serial.OpenOptions{
			PortName:              port,
			BaudRate:              baud,
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		},
	}
}

func (s *SerialSource) Run(ctx context.Context) error {
	port, err := serial.Open(s.opts)
	if err != nil {
		return fmt.Errorf("serial %s: open: %w: %w", s.opts.PortName, ErrSensorUnavailable, err)
	}
	log.Printf("serial: port opened on %s at %d baud", s.opts.PortName, s.opts.BaudRate)

	go func() {
		<-ctx.Done()
		port.Close()
	}()

	err = s.readLoop(port)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readLoop delivers every valid sentence from r until EOF or a read error.
// Noisy or partial lines are skipped.
func (s *SerialSource) readLoop(r io.Reader) error {
	reader := bufio.NewReader(r)
	var skipped int
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "$") {
			sample, perr := ParseSentence(line)
			if perr != nil {
				skipped++
				log.Debugf("serial: skipping %q: %v", line, perr)
			} else {
				s.Deliver(sample)
			}
		}
		if errors.Is(err, io.EOF) {
			log.Printf("serial: end of stream (skipped=%d)", skipped)
			return nil
		}
		if err != nil {
			return fmt.Errorf("serial %s: read: %w", s.opts.PortName, err)
		}
	}
}
