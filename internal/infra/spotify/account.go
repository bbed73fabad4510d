package spotify

import "context"

// The methods below resolve the current client and forward to it, so callers
// see ErrUnauthenticated until a token is available.

// Devices lists the account's playback devices.
func (p *Provider) Devices(ctx context.Context) ([]PlayerDevice, error) {
	c, err := p.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.Devices(ctx)
}

// Play starts playback of ref on deviceID, or on the active device if empty.
func (p *Provider) Play(ctx context.Context, deviceID, ref string) error {
	c, err := p.Client(ctx)
	if err != nil {
		return err
	}
	return c.Play(ctx, deviceID, ref)
}

// Pause pauses playback on deviceID, or on the active device if empty.
func (p *Provider) Pause(ctx context.Context, deviceID string) error {
	c, err := p.Client(ctx)
	if err != nil {
		return err
	}
	return c.Pause(ctx, deviceID)
}

// IsPlaying reports the account's player state.
func (p *Provider) IsPlaying(ctx context.Context) (bool, error) {
	c, err := p.Client(ctx)
	if err != nil {
		return false, err
	}
	return c.IsPlaying(ctx)
}

// SearchAlbumImage looks up album cover art.
func (p *Provider) SearchAlbumImage(ctx context.Context, artist, album string) (string, error) {
	c, err := p.Client(ctx)
	if err != nil {
		return "", err
	}
	return c.SearchAlbumImage(ctx, artist, album)
}
