// Package clouddns binds Rackspace Cloud DNS to the provider API. The binding
// is read-only.
package clouddns

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/grouping"
	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
	"github.com/sapslaj/rrsets/pkg/log"
	"github.com/sapslaj/rrsets/provider"
)

type CloudDNSProviderConfig struct {
	// URL overrides DefaultAPIEndpoint. It must include the account path.
	URL string
}

type cloudDNSMetadata struct{}

func (cloudDNSMetadata) Name() string { return "clouddns" }
func (cloudDNSMetadata) URL() string  { return DefaultAPIEndpoint }
func (cloudDNSMetadata) CredentialRequirement() credentials.Requirement {
	return credentials.NewRequirement("password", "username", "password").
		And("apiKey", "username", "apiKey")
}

// CloudDNS describes the Cloud DNS binding.
var CloudDNS provider.Provider = cloudDNSMetadata{}

type cloudDNSProvider struct {
	api    *httpClient
	gate   *credentials.Gate
	logger *zap.Logger
}

var _ provider.Client = (*cloudDNSProvider)(nil)

func NewCloudDNSProvider(providerConfig CloudDNSProviderConfig, supplier credentials.Supplier, opts ...ClientOption) provider.Client {
	logger := log.MustNewLogger().Named("clouddns_provider")
	opts = append([]ClientOption{WithLogger(logger), WithAPIEndpoint(providerConfig.URL)}, opts...)
	return &cloudDNSProvider{
		api:    newHTTPClient(opts...),
		gate:   credentials.NewGate(CloudDNS.Name(), CloudDNS.CredentialRequirement(), supplier, logger),
		logger: logger,
	}
}

func (p *cloudDNSProvider) Provider() provider.Provider {
	return CloudDNS
}

// headersFor turns validated credentials into request headers.
func headersFor(creds credentials.Credentials) authHeaders {
	for _, shape := range CloudDNS.CredentialRequirement() {
		if _, ok := (credentials.Requirement{shape}).Match(creds); !ok {
			continue
		}
		values := credentials.Values(creds, shape.Parameters)
		headers := authHeaders{"X-Auth-User": values[0]}
		if shape.Name == "apiKey" {
			headers["X-Auth-Key"] = values[1]
		} else {
			headers["X-Auth-Password"] = values[1]
		}
		return headers
	}
	return authHeaders{}
}

func (p *cloudDNSProvider) Zones() provider.ZoneAPI {
	return cloudDNSZones{p}
}

type cloudDNSZones struct {
	p *cloudDNSProvider
}

func (z cloudDNSZones) Iterator(ctx context.Context) paging.Seq[provider.Zone] {
	fetch := provider.GatedFetcher(z.p.gate, func(creds credentials.Credentials) paging.Fetcher[provider.Zone] {
		headers := headersFor(creds)
		return func(ctx context.Context, cursor paging.Cursor) (paging.Page[provider.Zone], error) {
			target := "/domains"
			if cursor != paging.NoCursor {
				target = string(cursor)
			}
			var resp domainsResponse
			if err := z.p.api.get(ctx, target, headers, &resp); err != nil {
				z.p.logger.Sugar().Errorw("could not list domains", "err", err)
				return paging.Page[provider.Zone]{}, fmt.Errorf("could not list domains: %w", err)
			}
			page := paging.Page[provider.Zone]{Items: make([]provider.Zone, 0, len(resp.Domains)), Next: nextLink(resp.Links)}
			for _, d := range resp.Domains {
				page.Items = append(page.Items, provider.Zone{Name: d.Name, ID: strconv.Itoa(d.ID)})
			}
			return page, nil
		}
	})
	return paging.NewIterator(ctx, fetch)
}

// RecordSetsInZone expects the numeric domain id.
func (p *cloudDNSProvider) RecordSetsInZone(zoneID string) (provider.ResourceRecordSetAPI, error) {
	domainID, err := strconv.Atoi(zoneID)
	if err != nil {
		return nil, fmt.Errorf("clouddns: invalid domain id %q: %w", zoneID, err)
	}
	recordsPath := fmt.Sprintf("/domains/%d/records", domainID)
	return &provider.PagedRecordSets[record]{
		ProviderName: CloudDNS.Name(),
		List: func() paging.Fetcher[record] {
			return p.recordFetcher(recordsPath)
		},
		ListByNameAndType: func(name, typ string) paging.Fetcher[record] {
			q := url.Values{}
			q.Set("name", name)
			q.Set("type", typ)
			return p.recordFetcher(recordsPath + "?" + q.Encode())
		},
		Normalizer: normalizer,
	}, nil
}

// recordFetcher requests first for the first page and follows next links
// afterwards.
func (p *cloudDNSProvider) recordFetcher(first string) paging.Fetcher[record] {
	return provider.GatedFetcher(p.gate, func(creds credentials.Credentials) paging.Fetcher[record] {
		headers := headersFor(creds)
		return func(ctx context.Context, cursor paging.Cursor) (paging.Page[record], error) {
			target := first
			if cursor != paging.NoCursor {
				target = string(cursor)
			}
			var resp recordsResponse
			if err := p.api.get(ctx, target, headers, &resp); err != nil {
				if !paging.IsNotFound(err) {
					p.logger.Sugar().Errorw("could not list records", "target", target, "err", err)
				}
				return paging.Page[record]{}, fmt.Errorf("could not list records: %w", err)
			}
			return paging.Page[record]{Items: resp.Records, Next: nextLink(resp.Links)}, nil
		}
	})
}

var normalizer = grouping.NormalizerFuncs[record]{
	KeyFunc: func(r record) model.Key {
		return model.Key{Name: r.Name, Type: r.Type}
	},
	ApplyFunc: func(b *model.Builder, r record) {
		b.Name(r.Name).Type(r.Type)
		if r.TTL != nil && b.Len() == 0 {
			b.TTL(uint32(*r.TTL))
		}
		b.Add(recordData(r))
	},
}

// recordData parses the record's data, prefixing the priority the API keeps
// in its own field for MX and SRV. Data that does not parse is kept as is.
func recordData(r record) model.RecordData {
	text := r.Data
	if r.Priority != nil && (r.Type == "MX" || r.Type == "SRV") {
		text = strconv.Itoa(*r.Priority) + " " + text
	}
	rdata, err := model.ParseRecordData(r.Type, text)
	if err != nil {
		return model.RecordData{Type: r.Type, Fields: map[string]any{"rdata": text}}
	}
	return rdata
}
