package backend

import (
	"context"
	"mime"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/castbox/internal/domain/track"
	"github.com/osa030/castbox/internal/infra/cast"
)

const defaultCastContentType = "audio/mp3"

var audioContentTypes = map[string]string{
	".mp3":  "audio/mp3",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
}

// Cast plays media URLs on a cast receiver. The connect and load handshake
// runs in its own goroutine. A Stop issued while the handshake is in flight
// prevents or undoes the load.
type Cast struct {
	addr    string
	dial    cast.Dialer
	timeout time.Duration

	mu      sync.Mutex
	session cast.Session
	gen     uint64 // bumped by every Play and Stop
	stopGen uint64 // gen of the last Stop
	pending int    // handshakes still running
	closed  bool
}

// NewCast creates a cast backend for the receiver at addr.
func NewCast(addr string, dial cast.Dialer, timeout time.Duration) *Cast {
	return &Cast{addr: addr, dial: dial, timeout: timeout}
}

func (c *Cast) Name() string { return "cast" }

// Play starts the handshake and returns immediately.
func (c *Cast) Play(_ context.Context, item track.Item) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.pending++
	c.mu.Unlock()

	go c.handshake(item, gen)
	return nil
}

// superseded reports whether a later Play or Stop replaced handshake gen.
func (c *Cast) superseded(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != gen
}

// stoppedAfter reports whether Stop was called after handshake gen began.
func (c *Cast) stoppedAfter(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopGen > gen
}

func (c *Cast) handshake(item track.Item, gen uint64) {
	defer func() {
		c.mu.Lock()
		c.pending--
		c.mu.Unlock()
	}()

	start := time.Now()
	sess, err := c.dial(c.addr)
	if err != nil {
		zlog.Error().Msgf("cast: connect failed: addr=%s error=%v", c.addr, err)
		return
	}

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		_ = sess.Close()
		zlog.Debug().Msgf("cast: stopped before load: addr=%s", c.addr)
		return
	}
	c.session = sess
	c.mu.Unlock()

	if err := sess.Load(item.MediaURL, contentType(item.MediaURL)); err != nil {
		zlog.Error().Msgf("cast: load failed: addr=%s url=%s error=%v", c.addr, item.MediaURL, err)
		return
	}

	if c.stoppedAfter(gen) {
		// Stop raced the load; the receiver must not keep playing.
		if err := sess.Stop(); err != nil {
			zlog.Warn().Msgf("cast: stop after load failed: addr=%s error=%v", c.addr, err)
		}
		zlog.Debug().Msgf("cast: stopped during load: addr=%s", c.addr)
		return
	}
	zlog.Info().Msgf("cast: media loaded: addr=%s title=%s elapsed=%s",
		c.addr, item.DisplayTitle(), time.Since(start).Round(time.Millisecond))
}

// Stop stops media on the receiver. With a handshake still connecting, the
// handshake skips the load instead; with none, a fresh connection is used.
func (c *Cast) Stop(_ context.Context) error {
	c.mu.Lock()
	c.gen++
	c.stopGen = c.gen
	sess := c.session
	pending := c.pending > 0
	c.mu.Unlock()

	if sess == nil {
		if pending {
			return nil
		}
		fresh, err := c.dial(c.addr)
		if err != nil {
			return err
		}
		defer fresh.Close()
		sess = fresh
	}
	return sess.Stop()
}

// IsPlaying reports PLAYING or BUFFERING as playing.
func (c *Cast) IsPlaying(_ context.Context) (bool, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		return false, ErrNotConnected
	}
	st, err := sess.Status()
	if err != nil {
		return false, err
	}
	return st.Active(), nil
}

// Close releases the receiver connection.
func (c *Cast) Close() error {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.closed = true
	c.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.Close()
}

// contentType guesses the MIME type from the URL path.
func contentType(mediaURL string) string {
	p := mediaURL
	if u, err := url.Parse(mediaURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return defaultCastContentType
	}
	if t, ok := audioContentTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return strings.SplitN(t, ";", 2)[0]
	}
	return defaultCastContentType
}
