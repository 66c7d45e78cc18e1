// Package mpris mirrors the playback controller onto the OS media
// session over D-Bus, so hardware media keys and desktop indicators
// drive the same next/previous/play/pause paths as the page.
package mpris

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/247pages/Ofplay/internal/model"
)

const (
	mprisPath = "/org/mpris/MediaPlayer2"

	introspectID = "org.freedesktop.DBus.Introspectable"
	mprisID      = "org.mpris.MediaPlayer2"
	playerID     = mprisID + ".Player"
	busName      = mprisID + ".ofplay"
)

// Controller is the subset of the playback controller the media
// session drives.
type Controller interface {
	Play()
	Pause()
	Next()
	Previous()
	Seek(seconds float64)
}

// Conn is a single MPRIS D-Bus connection.
type Conn struct {
	conn   *dbus.Conn
	player *playerObject
}

// New connects to the session bus and exports the player. Callers
// treat failure as non-fatal: playback works without a media session.
func New(ctrl Controller) (*Conn, error) {
	s, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}

	p, err := prop.Export(s, mprisPath, map[string]map[string]*prop.Prop{
		playerID: playerProps(),
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("export properties: %w", err)
	}

	conn := &Conn{
		conn:   s,
		player: &playerObject{ctrl: ctrl, props: p},
	}

	if err := s.Export(conn.player, mprisPath, playerID); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("export player: %w", err)
	}
	if err := s.Export(introspectionXML, mprisPath, introspectID); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	reply, err := s.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		_ = s.Close()
		return nil, fmt.Errorf("bus name %s already taken", busName)
	}

	return conn, nil
}

// Close releases the bus connection. Safe on nil.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	return c.conn.Close()
}

// Update mirrors the current track and play state into the media
// session metadata. Safe on nil and cheap to call redundantly.
func (c *Conn) Update(t model.Track, playing bool) {
	if c == nil {
		return
	}
	c.player.update(t, playing)
}

const introspectionXML introspect.Introspectable = `
<node>
	<interface name="org.mpris.MediaPlayer2.Player">
		<method name="Next"></method>
		<method name="Previous"></method>
		<method name="Pause"></method>
		<method name="PlayPause"></method>
		<method name="Play"></method>
		<method name="SetPosition">
			<arg type="o" name="TrackId" direction="in"/>
			<arg type="x" name="Offset" direction="in"/>
		</method>
		<property name="PlaybackStatus" type="s" access="read"/>
		<property name="Metadata" type="a{sv}" access="read"/>
		<property name="CanGoNext" type="b" access="read"/>
		<property name="CanGoPrevious" type="b" access="read"/>
		<property name="CanPlay" type="b" access="read"/>
		<property name="CanPause" type="b" access="read"/>
		<property name="CanSeek" type="b" access="read"/>
		<property name="CanControl" type="b" access="read"/>
	</interface>
</node>
`
