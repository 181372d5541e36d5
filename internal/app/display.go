// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/shoulder_measurement/internal/config"
	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

// displayData holds the latest estimates for the OLED.
type displayData struct {
	mu        sync.RWMutex
	estimates measurement.Estimates
	have      bool
	state     string
}

func (d *displayData) snapshot() (measurement.Estimates, bool, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.estimates, d.have, d.state
}

// RunDisplay shows the live estimates published on MQTT on an SSD1306.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := connectMQTT(cfg, "display")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	data := &displayData{state: "idle"}
	token := client.Subscribe(cfg.TopicEstimates, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var e measurement.Estimates
		if err := json.Unmarshal(msg.Payload(), &e); err != nil {
			log.Printf("display: estimates unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.estimates = e
		data.have = true
		data.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}

	token = client.Subscribe(cfg.TopicSession, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var ev SessionEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			log.Printf("display: session unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		switch ev.Type {
		case EventStarted:
			data.state = "running"
			data.have = false
		case EventStopped:
			data.state = "stopped"
		case EventExported:
			data.state = "saved"
		}
		data.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s and %s", cfg.TopicEstimates, cfg.TopicSession)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return dev.Halt()
		case <-ticker.C:
			e, have, state := data.snapshot()
			if err := dev.Draw(dev.Bounds(), renderEstimates(e, have, state), image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// displayLines is the text content of one frame.
func displayLines(e measurement.Estimates, have bool, state string) []string {
	if !have {
		return []string{"Shoulder angle", "", "Waiting...", state}
	}
	return []string{
		"EWMA:   " + fmt.Sprintf("%6.2f", e.Algorithm1),
		"Fusion: " + fmt.Sprintf("%6.2f", e.Algorithm2),
		fmt.Sprintf("t=%.2fs", e.ElapsedSeconds),
		state,
	}
}

func renderEstimates(e measurement.Estimates, have bool, state string) *image1bit.VerticalLSB {
	img, drawer := newFrame()
	for i, line := range displayLines(e, have, state) {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Shoulder")

	drawer.Dot = fixed.P(10, 43)
	drawer.DrawString("Measurement")
	return img
}
