package sonos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Actions(t *testing.T) {
	var actions []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, avTransportPath, r.URL.Path)
		actions = append(actions, r.Header.Get("SOAPACTION"))
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get("SOAPACTION") == `"`+avTransportService+`#SetAVTransportURI"` {
			assert.Contains(t, string(body), "<CurrentURI>http://host/stream/a%20b.mp3</CurrentURI>")
		}
		fmt.Fprint(w, `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body/></s:Envelope>`)
	}))
	defer server.Close()

	c := New(time.Second)
	ctx := context.Background()

	require.NoError(t, c.SetAVTransportURI(ctx, server.URL, "http://host/stream/a%20b.mp3", ""))
	require.NoError(t, c.Play(ctx, server.URL+"/"))
	require.NoError(t, c.Stop(ctx, server.URL))

	assert.Equal(t, []string{
		`"` + avTransportService + `#SetAVTransportURI"`,
		`"` + avTransportService + `#Play"`,
		`"` + avTransportService + `#Stop"`,
	}, actions)
}

func TestClient_GetTransportInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <u:GetTransportInfoResponse xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">
      <CurrentTransportState>PLAYING</CurrentTransportState>
      <CurrentTransportStatus>OK</CurrentTransportStatus>
      <CurrentSpeed>1</CurrentSpeed>
    </u:GetTransportInfoResponse>
  </s:Body>
</s:Envelope>`)
	}))
	defer server.Close()

	info, err := New(time.Second).GetTransportInfo(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "PLAYING", info.CurrentTransportState)
	assert.Equal(t, "OK", info.CurrentTransportStatus)
}

func TestClient_Fault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>
<s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring>
<detail><UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>701</errorCode></UPnPError></detail>
</s:Fault></s:Body></s:Envelope>`)
	}))
	defer server.Close()

	err := New(time.Second).Play(context.Background(), server.URL)
	require.Error(t, err)

	var fault *SOAPFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "701", fault.Detail)
}

func TestMusicMetadata_Escapes(t *testing.T) {
	meta := MusicMetadata("http://h/a.mp3?x=1&y=2", "Rock & Roll")
	assert.Contains(t, meta, "Rock &amp; Roll")
	assert.Contains(t, meta, "x=1&amp;y=2")
}
