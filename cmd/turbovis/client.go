package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
)

// progressUpdate is the subset of monitor.Event.Data this window cares
// about, decoded by hand rather than importing monitor's Event type
// directly (turbovis only ever speaks the wire JSON, never the hub).
type progressUpdate struct {
	Trials    int  `json:"trials"`
	TotalBits int  `json:"totalBits"`
	BitErrors int  `json:"bitErrors"`
	FrameErrs int  `json:"frameErrs"`
	Converged bool `json:"converged"`
}

type dashboardEvent struct {
	Type string         `json:"type"`
	Data progressUpdate `json:"data"`
}

// watchDashboard dials a turbosim -monitor-addr server and delivers one
// progressUpdate per broadcast event until the connection closes; errors
// are sent on errs and the goroutine returns.
func watchDashboard(addr string, updates chan<- progressUpdate, errs chan<- error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		errs <- fmt.Errorf("dial dashboard %s: %w", addr, err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			errs <- fmt.Errorf("dashboard connection closed: %w", err)
			return
		}
		var ev dashboardEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		if ev.Type == "progress_update" {
			updates <- ev.Data
		}
	}
}
