package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"unicode"

	"github.com/climatenet/climatebot/internal/metrics"
	"github.com/climatenet/climatebot/internal/session"
	"github.com/climatenet/climatebot/internal/store"
)

const (
	DefaultWebsiteURL  = "https://climatenet.am/en/"
	DefaultMapImageURL = "https://images-in-website.s3.us-east-1.amazonaws.com/Bot/map.png"

	shareLocationButton = "📍 Share Location"
	backButton          = "/back 🔴"

	invalidMessageReply = "❗ Please use a valid command.\nYou can see all available commands by typing /Help❓"
)

// MainMenu is the top-level command keyboard. cur, when set, is the name
// of the chat's current device and is shown on the /Current button.
func MainMenu(cur string) []string {
	return []string{
		"/Current 📍" + cur,
		"/Change_device 🔄",
		"/Help ❓",
		"/Website 🌐",
		"/Map 🗺️",
		"/Share_location 🌍",
		"/Compare 🆚",
	}
}

const helpText = `
<b>/Current 📍:</b> Get the latest climate data in selected location.

<b>/Change_device 🔄:</b> Change to another climate monitoring device.

<b>/Help ❓:</b> Show available commands.

<b>/Website 🌐:</b> Visit our website for more information.

<b>/Map 🗺️:</b> View the locations of all devices on a map.

<b>/Share_location 🌍:</b> Share your location.

<b>/Compare 🆚:</b> Compare data from 2 or more devices side by side.
`

// Dispatcher routes inbound updates to the session machine and plays the
// resulting actions back through the transport. One update is handled at
// a time; the poller guarantees serial delivery.
type Dispatcher struct {
	transport Transport
	machine   *session.Machine
	dir       session.DeviceDirectory
	store     *store.Store
	http      *http.Client

	websiteURL  string
	mapImageURL string
}

func NewDispatcher(transport Transport, machine *session.Machine, dir session.DeviceDirectory, st *store.Store, httpClient *http.Client, websiteURL, mapImageURL string) *Dispatcher {
	if websiteURL == "" {
		websiteURL = DefaultWebsiteURL
	}
	if mapImageURL == "" {
		mapImageURL = DefaultMapImageURL
	}
	return &Dispatcher{
		transport:   transport,
		machine:     machine,
		dir:         dir,
		store:       st,
		http:        httpClient,
		websiteURL:  websiteURL,
		mapImageURL: mapImageURL,
	}
}

// HandleUpdate processes one inbound update end to end. Errors are logged,
// never returned: a failed reply must not take down the receive loop.
func (d *Dispatcher) HandleUpdate(ctx context.Context, u Update) {
	msg := u.Message
	if msg == nil {
		return
	}

	returning := d.rememberUser(msg)

	if msg.Location != nil {
		d.handleSharedLocation(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		// Stickers, voice notes and other media arrive as empty text.
		d.logCommand(msg, "media")
		d.reply(ctx, msg.Chat.ID, session.Action{Kind: session.ActionText, Text: invalidMessageReply})
		return
	}

	if strings.HasPrefix(text, "/") {
		d.handleCommand(ctx, msg, parseCommand(text), returning)
		return
	}
	d.handleText(ctx, msg, text)
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg *Message, cmd string, returning bool) {
	chatID := msg.Chat.ID
	d.logCommand(msg, cmd)

	switch cmd {
	case "start":
		actions := []session.Action{{Kind: session.ActionText, Text: "🌤️ Welcome to ClimateNet! 🌧️"}}
		if !returning {
			actions = append(actions, session.Action{Kind: session.ActionText, Text: welcomeText(msg.From)})
		}
		actions = append(actions, d.locationPrompt())
		d.reply(ctx, chatID, actions...)

	case "compare":
		d.replyAll(ctx, chatID, d.machine.StartCompare(chatID))

	case "current":
		d.restoreCurrent(chatID)
		d.replyAll(ctx, chatID, d.machine.RefreshCurrent(ctx, chatID))

	case "help":
		d.reply(ctx, chatID, session.Action{Kind: session.ActionText, Text: helpText, HTML: true})

	case "change_device":
		d.machine.ClearCurrent(chatID)
		d.reply(ctx, chatID, d.locationPrompt())

	case "change_location":
		d.reply(ctx, chatID, d.locationPrompt())

	case "cancel_compare":
		d.replyAll(ctx, chatID, d.machine.Cancel(chatID))

	case "website":
		d.reply(ctx, chatID, session.Action{
			Kind: session.ActionText,
			Text: "For more information, visit our official website: 🖥️\n" + d.websiteURL,
		})

	case "map":
		d.sendMap(ctx, chatID)

	case "share_location":
		if err := d.transport.SendText(ctx, chatID, "Click the button below to share your location 🔽", SendOptions{
			Keyboard:        []string{shareLocationButton, backButton},
			RequestLocation: true,
		}); err != nil {
			log.Printf("dispatch: send location request to chat %d: %v", chatID, err)
		}

	case "back":
		d.reply(ctx, chatID, session.Action{
			Kind:    session.ActionText,
			Text:    "You are back to the main menu. How can I assist you?",
			Options: d.machine.Menu(chatID),
		})

	default:
		d.reply(ctx, chatID, session.Action{Kind: session.ActionText, Text: invalidMessageReply})
	}
}

// handleText matches free text against the machine's quick-reply buttons,
// then against known locations and device names.
func (d *Dispatcher) handleText(ctx context.Context, msg *Message, text string) {
	chatID := msg.Chat.ID

	switch text {
	case session.AddMoreButton:
		d.replyAll(ctx, chatID, d.machine.AddMore(chatID))
		return
	case session.StartCompareButton:
		d.replyAll(ctx, chatID, d.machine.StartComparing(ctx, chatID))
		return
	}

	if d.dir.HasLocation(text) {
		d.replyAll(ctx, chatID, d.machine.PickLocation(chatID, text))
		return
	}
	if _, ok := d.dir.Lookup(text); ok {
		d.logCommand(msg, "device_select")
		d.replyAll(ctx, chatID, d.machine.PickDevice(ctx, chatID, text))
		return
	}

	d.reply(ctx, chatID, session.Action{Kind: session.ActionText, Text: invalidMessageReply})
}

func (d *Dispatcher) handleSharedLocation(ctx context.Context, msg *Message) {
	d.logCommand(msg, "shared_location")
	if msg.From != nil && d.store != nil {
		coords := fmt.Sprintf("%g,%g", msg.Location.Longitude, msg.Location.Latitude)
		if err := d.store.RecordUserLocation(msg.From.ID, coords); err != nil {
			log.Printf("dispatch: record location for user %d: %v", msg.From.ID, err)
		}
	}
	d.reply(ctx, msg.Chat.ID, session.Action{
		Kind:    session.ActionText,
		Text:    "Select other commands to continue ▶️",
		Options: d.machine.Menu(msg.Chat.ID),
	})
}

// sendMap downloads the station map and forwards it as a photo.
func (d *Dispatcher) sendMap(ctx context.Context, chatID int64) {
	png, err := d.fetchMapImage(ctx)
	if err != nil {
		log.Printf("dispatch: fetch map image: %v", err)
		d.reply(ctx, chatID, session.Action{Kind: session.ActionText, Text: "⚠️ The map is unavailable right now. Please try again later."})
		return
	}
	if err := d.transport.SendPhoto(ctx, chatID, png,
		"📌 The highlighted locations indicate the current active climate devices. 🗺️"); err != nil {
		log.Printf("dispatch: send map to chat %d: %v", chatID, err)
	}
}

func (d *Dispatcher) fetchMapImage(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.mapImageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get map: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get map: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (d *Dispatcher) locationPrompt() session.Action {
	return session.Action{
		Kind:    session.ActionText,
		Text:    "Please choose a location: 📍",
		Options: d.dir.Locations(),
	}
}

func (d *Dispatcher) replyAll(ctx context.Context, chatID int64, actions []session.Action) {
	d.reply(ctx, chatID, actions...)
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, actions ...session.Action) {
	for _, a := range actions {
		var err error
		switch a.Kind {
		case session.ActionPhoto:
			err = d.transport.SendPhoto(ctx, chatID, a.Photo, "")
		default:
			err = d.transport.SendText(ctx, chatID, a.Text, SendOptions{
				HTML:     a.HTML,
				Keyboard: a.Options,
			})
		}
		if err != nil {
			log.Printf("dispatch: send to chat %d: %v", chatID, err)
		}
	}
}

// rememberUser upserts the sender's profile and reports whether they were
// already known before this message.
func (d *Dispatcher) rememberUser(msg *Message) bool {
	if msg.From == nil || d.store == nil {
		return false
	}

	returning := false
	if u, err := d.store.GetUser(msg.From.ID); err != nil {
		log.Printf("dispatch: look up user %d: %v", msg.From.ID, err)
	} else if u != nil {
		returning = true
	}

	err := d.store.UpsertUser(store.User{
		ID:        msg.From.ID,
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	})
	if err != nil {
		log.Printf("dispatch: upsert user %d: %v", msg.From.ID, err)
	}
	return returning
}

// restoreCurrent repopulates a chat's device selection from the selection
// log, so /Current keeps working across process restarts.
func (d *Dispatcher) restoreCurrent(chatID int64) {
	if d.store == nil {
		return
	}
	if s, ok := d.machine.Store().Peek(chatID); ok && s.Current != nil {
		return
	}

	_, name, err := d.store.LastDeviceSelection(chatID)
	if err != nil {
		log.Printf("dispatch: last selection for chat %d: %v", chatID, err)
		return
	}
	if name == "" {
		return
	}
	if dev, ok := d.dir.Lookup(name); ok {
		d.machine.Store().Get(chatID).Current = &dev
	}
}

func (d *Dispatcher) logCommand(msg *Message, cmd string) {
	metrics.CommandsTotal.WithLabelValues(cmd).Inc()
	if d.store == nil || msg.From == nil {
		return
	}
	if err := d.store.LogCommand(msg.Chat.ID, msg.From.ID, cmd); err != nil {
		log.Printf("dispatch: log command %q: %v", cmd, err)
	}
}

func welcomeText(from *Sender) string {
	name := "there"
	if from != nil && from.FirstName != "" {
		name = from.FirstName
	}
	return fmt.Sprintf(`Hello %s! 👋 I am your personal climate assistant.
With me, you can:
    🔹 Access current measurements of temperature, humidity, wind speed, and more, which are refreshed every 15 minutes for reliable updates.
`, name)
}

// parseCommand extracts the lowercase command word from a slash message.
// Keyboard labels carry emoji and arguments after the word, both ignored.
func parseCommand(text string) string {
	word := strings.Fields(text)[0]
	word = strings.TrimPrefix(word, "/")
	word = strings.ToLower(word)
	return strings.TrimRightFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
