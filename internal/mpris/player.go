package mpris

import (
	"log"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"

	"github.com/247pages/Ofplay/internal/model"
)

type playerObject struct {
	ctrl    Controller
	props   *prop.Properties
	playing bool
}

func playerProps() map[string]*prop.Prop {
	readonly := func(v interface{}) *prop.Prop {
		return &prop.Prop{Value: v, Writable: false, Emit: prop.EmitTrue}
	}

	return map[string]*prop.Prop{
		"PlaybackStatus": readonly("Stopped"),
		"Metadata":       readonly(map[string]dbus.Variant{}),
		"CanGoNext":      readonly(true),
		"CanGoPrevious":  readonly(true),
		"CanPlay":        readonly(true),
		"CanPause":       readonly(true),
		"CanSeek":        readonly(true),
		"CanControl":     readonly(true),
	}
}

func (p *playerObject) update(t model.Track, playing bool) {
	p.playing = playing

	status := "Paused"
	if playing {
		status = "Playing"
	}
	if err := p.props.Set(playerID, "PlaybackStatus", dbus.MakeVariant(status)); err != nil {
		log.Printf("ofplay: mpris status: %v", err)
	}

	metadata := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/com/github/ofplay/track/" + dbusSafe(t.ID))),
		"xesam:title":   dbus.MakeVariant(t.Title),
		"xesam:artist":  dbus.MakeVariant([]string{t.ChannelName}),
		"mpris:length":  dbus.MakeVariant(int64(t.DurationSeconds) * 1_000_000),
	}
	if t.ThumbnailURL != "" {
		metadata["mpris:artUrl"] = dbus.MakeVariant(t.ThumbnailURL)
	}
	if err := p.props.Set(playerID, "Metadata", dbus.MakeVariant(metadata)); err != nil {
		log.Printf("ofplay: mpris metadata: %v", err)
	}
}

// dbusSafe rewrites a track id into a valid object-path element.
func dbusSafe(id string) string {
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func (p *playerObject) Next() *dbus.Error {
	p.ctrl.Next()
	return nil
}

func (p *playerObject) Previous() *dbus.Error {
	p.ctrl.Previous()
	return nil
}

func (p *playerObject) Play() *dbus.Error {
	p.ctrl.Play()
	return nil
}

func (p *playerObject) Pause() *dbus.Error {
	p.ctrl.Pause()
	return nil
}

func (p *playerObject) PlayPause() *dbus.Error {
	if p.playing {
		p.ctrl.Pause()
	} else {
		p.ctrl.Play()
	}
	return nil
}

func (p *playerObject) SetPosition(trackID dbus.ObjectPath, offset int64) *dbus.Error {
	p.ctrl.Seek(float64(offset) / 1_000_000)
	return nil
}
