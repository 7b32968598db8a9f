// Command turbovis is a small desktop companion to turbosim: a drift
// PDF plot over a synthetic codeword, and a live BER/FER convergence
// plot fed by a turbosim -monitor-addr dashboard connection. Built the
// way m17msg/main.go and ui.go build their fyne window, without that
// command's server/channel/message model.
package main

import (
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/kd4xpt/turbosim/idschannel"
)

const winTitle = "turbovis"

func main() {
	a := app.NewWithID("net.kd4xpt.turbosim.turbovis")
	w := a.NewWindow(winTitle)

	ber := newLineChart("BER convergence")
	fer := newLineChart("FER convergence")
	drift := newBarChart("Drift PDF")

	addrEntry := widget.NewEntry()
	addrEntry.SetPlaceHolder("turbosim -monitor-addr, e.g. localhost:8080")
	var berHistory, ferHistory []float64
	connectBtn := widget.NewButton("Connect", func() {
		addr := addrEntry.Text
		if addr == "" {
			return
		}
		updates := make(chan progressUpdate, 64)
		errs := make(chan error, 1)
		go watchDashboard(addr, updates, errs)
		go func() {
			for {
				select {
				case u, ok := <-updates:
					if !ok {
						return
					}
					if u.TotalBits > 0 {
						berHistory = append(berHistory, float64(u.BitErrors)/float64(u.TotalBits))
					}
					if u.Trials > 0 {
						ferHistory = append(ferHistory, float64(u.FrameErrs)/float64(u.Trials))
					}
					ber.setValues(berHistory)
					fer.setValues(ferHistory)
				case err := <-errs:
					log.Printf("[ERROR] %v", err)
					dialog.ShowError(err, w)
					return
				}
			}
		}()
	})

	psEntry := widget.NewEntry()
	psEntry.SetText("0.02")
	pdEntry := widget.NewEntry()
	pdEntry.SetText("0.02")
	piEntry := widget.NewEntry()
	piEntry.SetText("0.02")
	plotDriftBtn := widget.NewButton("Plot drift PDF", func() {
		ps, pd, pi, err := parseDriftParams(psEntry.Text, pdEntry.Text, piEntry.Text)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		labels, values, err := driftDistribution(idschannel.Params{Ps: ps, Pd: pd, Pi: pi, Q: 4}, 32, 5)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		drift.setValues(labels, values)
	})

	dashboardForm := container.NewBorder(nil, nil, widget.NewLabel("Dashboard:"), connectBtn, addrEntry)
	driftForm := container.NewHBox(
		widget.NewLabel("Ps:"), psEntry,
		widget.NewLabel("Pd:"), pdEntry,
		widget.NewLabel("Pi:"), piEntry,
		plotDriftBtn,
	)

	content := container.NewVBox(
		dashboardForm,
		container.NewHBox(ber.canvasObject(), fer.canvasObject()),
		driftForm,
		drift.canvasObject(),
	)
	w.SetContent(content)
	w.Resize(fyne.NewSize(1000, 700))
	w.ShowAndRun()
}

func parseDriftParams(psStr, pdStr, piStr string) (ps, pd, pi float64, err error) {
	if _, err = fmt.Sscanf(psStr, "%g", &ps); err != nil {
		return 0, 0, 0, fmt.Errorf("bad Ps: %w", err)
	}
	if _, err = fmt.Sscanf(pdStr, "%g", &pd); err != nil {
		return 0, 0, 0, fmt.Errorf("bad Pd: %w", err)
	}
	if _, err = fmt.Sscanf(piStr, "%g", &pi); err != nil {
		return 0, 0, 0, fmt.Errorf("bad Pi: %w", err)
	}
	return ps, pd, pi, nil
}
