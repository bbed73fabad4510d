// Package sonos provides a minimal UPnP AVTransport client for networked speakers.
package sonos

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	avTransportPath    = "/MediaRenderer/AVTransport/Control"
	avTransportService = "urn:schemas-upnp-org:service:AVTransport:1"
)

// TransportInfo is the result of GetTransportInfo.
type TransportInfo struct {
	CurrentTransportState  string `xml:"CurrentTransportState"`
	CurrentTransportStatus string `xml:"CurrentTransportStatus"`
	CurrentSpeed           string `xml:"CurrentSpeed"`
}

// SOAPFault is a UPnP error returned by the speaker.
type SOAPFault struct {
	Code   string
	Detail string
}

func (f *SOAPFault) Error() string {
	return fmt.Sprintf("soap fault: code=%s detail=%s", f.Code, f.Detail)
}

// Client sends AVTransport actions to a speaker identified by its base URL
// (for example http://192.168.1.30:1400).
type Client struct {
	httpClient *http.Client
}

// New creates a client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// SetAVTransportURI loads uri as the current track.
func (c *Client) SetAVTransportURI(ctx context.Context, baseURL, uri, metadata string) error {
	args := fmt.Sprintf("<InstanceID>0</InstanceID><CurrentURI>%s</CurrentURI><CurrentURIMetaData>%s</CurrentURIMetaData>",
		html.EscapeString(uri), html.EscapeString(metadata))
	_, err := c.call(ctx, baseURL, "SetAVTransportURI", args)
	return err
}

// Play starts the loaded track.
func (c *Client) Play(ctx context.Context, baseURL string) error {
	_, err := c.call(ctx, baseURL, "Play", "<InstanceID>0</InstanceID><Speed>1</Speed>")
	return err
}

// Stop stops playback.
func (c *Client) Stop(ctx context.Context, baseURL string) error {
	_, err := c.call(ctx, baseURL, "Stop", "<InstanceID>0</InstanceID>")
	return err
}

// GetTransportInfo reads the current transport state.
func (c *Client) GetTransportInfo(ctx context.Context, baseURL string) (*TransportInfo, error) {
	body, err := c.call(ctx, baseURL, "GetTransportInfo", "<InstanceID>0</InstanceID>")
	if err != nil {
		return nil, err
	}

	var env struct {
		Body struct {
			Response TransportInfo `xml:"GetTransportInfoResponse"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "failed to parse transport info")
	}
	return &env.Body.Response, nil
}

// call posts one SOAP action and returns the raw response envelope.
func (c *Client) call(ctx context.Context, baseURL, action, args string) ([]byte, error) {
	envelope := `<?xml version="1.0" encoding="utf-8"?>` +
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">` +
		`<s:Body><u:` + action + ` xmlns:u="` + avTransportService + `">` + args + `</u:` + action + `></s:Body></s:Envelope>`

	endpoint := strings.TrimRight(baseURL, "/") + avTransportPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(envelope))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf(`"%s#%s"`, avTransportService, action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send %s", action)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		if fault := parseFault(body); fault != nil {
			return nil, errors.Wrapf(fault, "%s failed", action)
		}
		return nil, errors.Newf("%s failed: status=%d", action, resp.StatusCode)
	}
	return body, nil
}

func parseFault(body []byte) *SOAPFault {
	var env struct {
		Body struct {
			Fault struct {
				Code   string `xml:"faultcode"`
				Detail struct {
					UPnPError struct {
						ErrorCode string `xml:"errorCode"`
					} `xml:"UPnPError"`
				} `xml:"detail"`
			} `xml:"Fault"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(body, &env); err != nil || env.Body.Fault.Code == "" {
		return nil
	}
	return &SOAPFault{
		Code:   env.Body.Fault.Code,
		Detail: env.Body.Fault.Detail.UPnPError.ErrorCode,
	}
}

// MusicMetadata builds minimal DIDL-Lite metadata so the speaker shows a title.
func MusicMetadata(uri, title string) string {
	return `<DIDL-Lite xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/" xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/">` +
		`<item id="castbox" parentID="0" restricted="1"><dc:title>` + html.EscapeString(title) + `</dc:title>` +
		`<upnp:class>object.item.audioItem.musicTrack</upnp:class>` +
		`<res protocolInfo="http-get:*:audio/mpeg:*">` + html.EscapeString(uri) + `</res></item></DIDL-Lite>`
}
