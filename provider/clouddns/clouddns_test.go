package clouddns

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
	"github.com/sapslaj/rrsets/provider"
)

type fakeCloudDNS struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
}

func (f *fakeCloudDNS) seen() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

func intPtr(i int) *int { return &i }

func newFakeCloudDNS(t *testing.T) *fakeCloudDNS {
	t.Helper()
	f := &fakeCloudDNS{}
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	mux.HandleFunc("/domains", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "1" {
			write(w, http.StatusOK, domainsResponse{Domains: []domain{{ID: 5678, Name: "example.net"}}})
			return
		}
		write(w, http.StatusOK, domainsResponse{
			Domains: []domain{{ID: 1234, Name: "example.com"}},
			Links:   []link{{Rel: "next", Href: f.URL + "/domains?offset=1"}},
		})
	})
	mux.HandleFunc("/domains/1234/records", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("name") == "www.example.com" && q.Get("type") == "A":
			write(w, http.StatusOK, recordsResponse{Records: []record{
				{ID: "A-1", Name: "www.example.com", Type: "A", Data: "192.0.2.1", TTL: intPtr(300)},
				{ID: "A-2", Name: "www.example.com", Type: "A", Data: "192.0.2.2", TTL: intPtr(300)},
			}})
		case q.Get("name") != "":
			write(w, http.StatusOK, recordsResponse{Records: []record{}})
		case q.Get("offset") == "2":
			write(w, http.StatusOK, recordsResponse{Records: []record{
				{ID: "A-2", Name: "www.example.com", Type: "A", Data: "192.0.2.2", TTL: intPtr(300)},
				{ID: "TXT-1", Name: "www.example.com", Type: "TXT", Data: `"hello"`, TTL: intPtr(300)},
			}})
		default:
			write(w, http.StatusOK, recordsResponse{
				Records: []record{
					{ID: "MX-1", Name: "example.com", Type: "MX", Data: "mx1.example.com", Priority: intPtr(10), TTL: intPtr(3600)},
					{ID: "MX-2", Name: "example.com", Type: "MX", Data: "mx2.example.com", Priority: intPtr(20), TTL: intPtr(3600)},
					{ID: "A-1", Name: "www.example.com", Type: "A", Data: "192.0.2.1", TTL: intPtr(300)},
				},
				Links: []link{{Rel: "next", Href: f.URL + "/domains/1234/records?offset=2"}},
			})
		}
	})
	mux.HandleFunc("/domains/404/records", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusNotFound, errorResponse{Message: "Object not Found."})
	})
	mux.HandleFunc("/domains/400/records", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusBadRequest, errorResponse{Details: "Invalid domain id"})
	})
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

var apiKeyCreds = credentials.ListCredentials{"jclouds-joe", "letmein"}

func newTestProvider(f *fakeCloudDNS, supplier credentials.Supplier) provider.Client {
	return NewCloudDNSProvider(CloudDNSProviderConfig{URL: f.URL + "/"}, supplier)
}

func TestCloudDNS_Iterator(t *testing.T) {
	f := newFakeCloudDNS(t)
	api, err := newTestProvider(f, credentials.Static(apiKeyCreds)).RecordSetsInZone("1234")
	require.NoError(t, err)
	assert.Empty(t, f.seen())

	rrsets, err := paging.Collect(api.Iterator(context.Background()))
	require.NoError(t, err)
	require.Len(t, rrsets, 3)

	mx := model.NewBuilder().
		Name("example.com").
		Type("MX").
		TTL(3600).
		Add(model.MXData(10, "mx1.example.com.")).
		Add(model.MXData(20, "mx2.example.com.")).
		MustBuild()
	assert.True(t, mx.Equal(rrsets[0]), "got %+v", rrsets[0])

	// www A spans both pages and is merged.
	assert.Equal(t, "www.example.com/A", rrsets[1].Key().String())
	assert.Equal(t, []model.RecordData{model.AData("192.0.2.1"), model.AData("192.0.2.2")}, rrsets[1].Records)
	assert.Equal(t, "www.example.com/TXT", rrsets[2].Key().String())

	require.Len(t, f.seen(), 2)
	assert.Equal(t, "/domains/1234/records", f.seen()[0].URL.Path)
	assert.Equal(t, "2", f.seen()[1].URL.Query().Get("offset"))
}

func TestCloudDNS_CredentialHeaders(t *testing.T) {
	tests := map[string]struct {
		creds  credentials.Credentials
		header string
	}{
		"password list": {
			creds:  credentials.ListCredentials{"jclouds-joe", "letmein"},
			header: "X-Auth-Password",
		},
		"api key map": {
			creds:  credentials.MapCredentials{"username": "jclouds-joe", "apiKey": "letmein"},
			header: "X-Auth-Key",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFakeCloudDNS(t)
			api, err := newTestProvider(f, credentials.Static(tc.creds)).RecordSetsInZone("1234")
			require.NoError(t, err)

			_, err = paging.Collect(api.Iterator(context.Background()))
			require.NoError(t, err)
			for _, r := range f.seen() {
				assert.Equal(t, "jclouds-joe", r.Header.Get("X-Auth-User"))
				assert.Equal(t, "letmein", r.Header.Get(tc.header))
			}
		})
	}
}

func TestCloudDNS_GetByNameAndType(t *testing.T) {
	f := newFakeCloudDNS(t)
	api, err := newTestProvider(f, credentials.Static(apiKeyCreds)).RecordSetsInZone("1234")
	require.NoError(t, err)

	rrset, err := api.GetByNameAndType(context.Background(), "www.example.com", "A")
	require.NoError(t, err)
	require.NotNil(t, rrset)
	assert.Len(t, rrset.Records, 2)
	require.Len(t, f.seen(), 1)
	assert.Equal(t, "A", f.seen()[0].URL.Query().Get("type"))

	rrset, err = api.GetByNameAndType(context.Background(), "ftp.example.com", "A")
	assert.NoError(t, err)
	assert.Nil(t, rrset)
	assert.Len(t, f.seen(), 2)
}

func TestCloudDNS_NotFound(t *testing.T) {
	f := newFakeCloudDNS(t)
	api, err := newTestProvider(f, credentials.Static(apiKeyCreds)).RecordSetsInZone("404")
	require.NoError(t, err)

	rrsets, err := paging.Collect(api.Iterator(context.Background()))
	assert.NoError(t, err)
	assert.Empty(t, rrsets)

	rrset, err := api.GetByNameAndType(context.Background(), "www.example.com", "A")
	assert.NoError(t, err)
	assert.Nil(t, rrset)
}

func TestCloudDNS_BadRequestIsAnError(t *testing.T) {
	f := newFakeCloudDNS(t)
	api, err := newTestProvider(f, credentials.Static(apiKeyCreds)).RecordSetsInZone("400")
	require.NoError(t, err)

	_, err = paging.Collect(api.Iterator(context.Background()))
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.EqualError(t, err, "could not list records: clouddns: Invalid domain id (status: 400)")
	assert.False(t, paging.IsNotFound(err))
}

func TestCloudDNS_Zones(t *testing.T) {
	f := newFakeCloudDNS(t)
	zones, err := paging.Collect(newTestProvider(f, credentials.Static(apiKeyCreds)).Zones().Iterator(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, []provider.Zone{
		{Name: "example.com", ID: "1234"},
		{Name: "example.net", ID: "5678"},
	}, zones)
}

func TestCloudDNS_MissingCredentials(t *testing.T) {
	f := newFakeCloudDNS(t)
	api, err := newTestProvider(f, nil).RecordSetsInZone("1234")
	require.NoError(t, err)

	_, err = paging.Collect(api.Iterator(context.Background()))
	assert.EqualError(
		t,
		err,
		"no credentials supplied. clouddns requires one of the following forms: "+
			"when type is password: username, password; apiKey: username, apiKey",
	)
	assert.Empty(t, f.seen())
}

func TestCloudDNS_WritesUnsupported(t *testing.T) {
	f := newFakeCloudDNS(t)
	api, err := newTestProvider(f, credentials.Static(apiKeyCreds)).RecordSetsInZone("1234")
	require.NoError(t, err)

	err = api.Put(context.Background(), model.NewBuilder().Name("a").Type("A").Add(model.AData("192.0.2.1")).MustBuild())
	assert.ErrorIs(t, err, provider.ErrUnsupported)
	err = api.DeleteByNameAndType(context.Background(), "a", "A")
	assert.EqualError(t, err, "clouddns: deleteByNameAndType: operation not supported")
}

func TestCloudDNS_InvalidZoneID(t *testing.T) {
	f := newFakeCloudDNS(t)
	_, err := newTestProvider(f, nil).RecordSetsInZone("example.com")
	assert.Error(t, err)
}

func TestRecordData(t *testing.T) {
	tests := map[string]struct {
		in   record
		want model.RecordData
	}{
		"a": {
			in:   record{Type: "A", Data: "192.0.2.1"},
			want: model.AData("192.0.2.1"),
		},
		"mx with priority": {
			in:   record{Type: "MX", Data: "mx.example.com", Priority: intPtr(5)},
			want: model.MXData(5, "mx.example.com."),
		},
		"srv with priority": {
			in:   record{Type: "SRV", Data: "10 5060 sip.example.com", Priority: intPtr(1)},
			want: model.SRVData(1, 10, 5060, "sip.example.com."),
		},
		"unparseable": {
			in:   record{Type: "A", Data: "not-an-address"},
			want: model.RecordData{Type: "A", Fields: map[string]any{"rdata": "not-an-address"}},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, recordData(tc.in))
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	hc := newHTTPClient()
	assert.Equal(t, DefaultAPIEndpoint, hc.apiEndpoint)
	assert.NotNil(t, hc.httpClient)
	assert.NotNil(t, hc.logger)

	hc = newHTTPClient(WithAPIEndpoint("http://custom-endpoint/"), WithHTTPClient(http.DefaultClient))
	assert.Equal(t, "http://custom-endpoint", hc.apiEndpoint)
	assert.Same(t, http.DefaultClient, hc.httpClient)
}
