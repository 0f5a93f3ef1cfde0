// Package tray puts a status icon in the system tray with menu entries
// for recording, model switching, and clipboard recall.
package tray

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/systray"
)

const tooltipIdle = "dikta – push to talk"

// Callbacks are invoked from tray menu clicks. All of them may be nil.
type Callbacks struct {
	OnRecord   func()
	OnStop     func()
	OnCopyLast func()
	OnModel    func(id string)
}

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	mu         sync.Mutex
	cbs        Callbacks
	models     []string
	active     string
	recording  bool
	mRecord    *systray.MenuItem
	mCopy      *systray.MenuItem
	modelItems map[string]*systray.MenuItem
)

// Init starts the tray icon loop and returns a channel closed when the
// user picks Quit.
func Init(modelIDs []string, activeModel string, cb Callbacks) <-chan struct{} {
	mu.Lock()
	models = append([]string(nil), modelIDs...)
	active = activeModel
	cbs = cb
	mu.Unlock()
	go systray.Run(onReady, nil)
	return quitCh
}

func onReady() {
	systray.SetIcon(iconIdle)
	systray.SetTooltip(tooltipIdle)

	mu.Lock()
	mRecord = systray.AddMenuItem("Start Recording", "Start a push-to-talk recording")
	mCopy = systray.AddMenuItem("Copy Last Transcript", "Copy the last transcript again")
	mModels := systray.AddMenuItem("Model", "Transcription model")
	modelItems = make(map[string]*systray.MenuItem, len(models))
	for _, id := range models {
		item := mModels.AddSubMenuItemCheckbox(id, id, id == active)
		modelItems[id] = item
		go watchModelClicks(id, item)
	}
	mu.Unlock()

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit dikta")

	go func() {
		for {
			select {
			case <-mRecord.ClickedCh:
				mu.Lock()
				rec := recording
				var fn func()
				if rec {
					fn = cbs.OnStop
				} else {
					fn = cbs.OnRecord
				}
				mu.Unlock()
				if fn != nil {
					fn()
				}
			case <-mCopy.ClickedCh:
				mu.Lock()
				fn := cbs.OnCopyLast
				mu.Unlock()
				if fn != nil {
					fn()
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
				Quit()
				return
			}
		}
	}()
}

func watchModelClicks(id string, item *systray.MenuItem) {
	for range item.ClickedCh {
		mu.Lock()
		fn := cbs.OnModel
		mu.Unlock()
		if fn != nil {
			fn(id)
		}
	}
}

// SetState updates the icon and menu for a pipeline state: "idle",
// "recording", "processing", or "model-loading".
func SetState(state, model string) {
	mu.Lock()
	defer mu.Unlock()

	recording = state == "recording"
	if mRecord != nil {
		if recording {
			mRecord.SetTitle("Stop Recording")
		} else {
			mRecord.SetTitle("Start Recording")
		}
	}

	switch state {
	case "recording":
		systray.SetIcon(iconRecording)
		systray.SetTooltip("dikta – recording")
	case "processing":
		systray.SetIcon(iconBusy)
		systray.SetTooltip("dikta – transcribing")
	case "model-loading":
		systray.SetIcon(iconLoading)
		systray.SetTooltip(fmt.Sprintf("dikta – loading %s", model))
	default:
		systray.SetIcon(iconIdle)
		systray.SetTooltip(tooltipIdle)
	}
}

// SetModel checks the active model in the menu. Called after a model load
// completes so a failed load keeps the old checkmark.
func SetModel(id string) {
	mu.Lock()
	defer mu.Unlock()
	active = id
	for mid, item := range modelItems {
		if mid == id {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// SetError flashes the error in the tooltip for a few seconds.
func SetError(msg string) {
	systray.SetTooltip("dikta – " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		systray.SetTooltip(tooltipIdle)
	}()
}

// SetLastTranscript refreshes the recall entry with the last result's
// duration and latency.
func SetLastTranscript(dur time.Duration, totalMs float64) {
	mu.Lock()
	defer mu.Unlock()
	if mCopy != nil {
		mCopy.SetTitle(fmt.Sprintf("Copy Last Transcript (%.1fs | %dms)", dur.Seconds(), int(totalMs)))
	}
}

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}
