// Package aws binds Amazon Route53 to the provider API.
package aws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
	"github.com/sapslaj/rrsets/pkg/log"
	"github.com/sapslaj/rrsets/provider"
)

type Route53Client interface {
	ListHostedZones(
		ctx context.Context,
		params *route53.ListHostedZonesInput,
		optFns ...func(*route53.Options),
	) (*route53.ListHostedZonesOutput, error)
	ListResourceRecordSets(
		ctx context.Context,
		params *route53.ListResourceRecordSetsInput,
		optFns ...func(*route53.Options),
	) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(
		ctx context.Context,
		params *route53.ChangeResourceRecordSetsInput,
		optFns ...func(*route53.Options),
	) (*route53.ChangeResourceRecordSetsOutput, error)
}

type Route53ProviderConfig struct {
	// Region used to sign requests. Defaults to us-east-1.
	Region string
	// PageSize is sent as MaxItems. Zero lets Route53 pick.
	PageSize int
	// DefaultCredentials skips supplied credentials and uses the SDK's
	// default chain (environment, shared config, instance role).
	DefaultCredentials bool
}

type route53Metadata struct{}

func (route53Metadata) Name() string { return "route53" }
func (route53Metadata) URL() string  { return "https://route53.amazonaws.com" }
func (route53Metadata) CredentialRequirement() credentials.Requirement {
	return credentials.NewRequirement("accessKey", "accessKey", "secretKey").
		And("session", "accessKey", "secretKey", "sessionToken")
}

// Route53 describes the Route53 binding.
var Route53 provider.Provider = route53Metadata{}

type route53Provider struct {
	config      Route53ProviderConfig
	client      Route53Client
	requirement credentials.Requirement
	gate        *credentials.Gate
	// callOptions runs the gate and turns the result into per call client
	// options for writes.
	callOptions func(context.Context) ([]func(*route53.Options), error)
	logger      *zap.Logger
}

var _ provider.Client = (*route53Provider)(nil)

func NewRoute53Provider(ctx context.Context, providerConfig Route53ProviderConfig, supplier credentials.Supplier) (provider.Client, error) {
	client, err := defaultR53Client(ctx, providerConfig.Region)
	if err != nil {
		return nil, fmt.Errorf("could not get default Route53 client: %w", err)
	}
	return newRoute53Provider(client, log.MustNewLogger().Named("aws_route53_provider"), providerConfig, supplier), nil
}

func newRoute53Provider(
	client Route53Client,
	logger *zap.Logger,
	providerConfig Route53ProviderConfig,
	supplier credentials.Supplier,
) *route53Provider {
	requirement := Route53.CredentialRequirement()
	if providerConfig.DefaultCredentials {
		requirement = nil
	}
	gate := credentials.NewGate(Route53.Name(), requirement, supplier, logger)
	return &route53Provider{
		config:      providerConfig,
		client:      client,
		requirement: requirement,
		gate:        gate,
		callOptions: credentials.Lazy(gate, func(creds credentials.Credentials) ([]func(*route53.Options), error) {
			return withCredentials(requirement, creds), nil
		}),
		logger: logger,
	}
}

func (p *route53Provider) Provider() provider.Provider {
	return Route53
}

func (p *route53Provider) maxItems() *int32 {
	if p.config.PageSize <= 0 {
		return nil
	}
	return aws.Int32(int32(p.config.PageSize))
}

func (p *route53Provider) Zones() provider.ZoneAPI {
	return route53Zones{p}
}

type route53Zones struct {
	p *route53Provider
}

func (z route53Zones) Iterator(ctx context.Context) paging.Seq[provider.Zone] {
	return paging.NewIterator(ctx, provider.GatedFetcher(z.p.gate, z.p.zoneFetcher))
}

func (p *route53Provider) zoneFetcher(creds credentials.Credentials) paging.Fetcher[provider.Zone] {
	optFns := withCredentials(p.requirement, creds)
	return func(ctx context.Context, cursor paging.Cursor) (paging.Page[provider.Zone], error) {
		input := &route53.ListHostedZonesInput{MaxItems: p.maxItems()}
		if cursor != paging.NoCursor {
			input.Marker = aws.String(string(cursor))
		}
		out, err := p.client.ListHostedZones(ctx, input, optFns...)
		if err != nil {
			p.logger.Sugar().Errorw("could not list hosted zones", "err", err)
			return paging.Page[provider.Zone]{}, fmt.Errorf("could not list hosted zones: %w", err)
		}
		page := paging.Page[provider.Zone]{Items: make([]provider.Zone, 0, len(out.HostedZones))}
		for _, hz := range out.HostedZones {
			page.Items = append(page.Items, provider.Zone{
				Name: aws.ToString(hz.Name),
				ID:   strings.TrimPrefix(aws.ToString(hz.Id), "/hostedzone/"),
			})
		}
		if out.IsTruncated && aws.ToString(out.NextMarker) != "" {
			page.Next = paging.Cursor(aws.ToString(out.NextMarker))
		}
		return page, nil
	}
}

func (p *route53Provider) RecordSetsInZone(zoneID string) (provider.ResourceRecordSetAPI, error) {
	if zoneID == "" {
		return nil, fmt.Errorf("route53: zone id is required")
	}
	return &provider.PagedRecordSets[types.ResourceRecordSet]{
		ProviderName: Route53.Name(),
		List: func() paging.Fetcher[types.ResourceRecordSet] {
			return provider.GatedFetcher(p.gate, func(creds credentials.Credentials) paging.Fetcher[types.ResourceRecordSet] {
				return p.recordFetcher(zoneID, nil, withCredentials(p.requirement, creds))
			})
		},
		ListByNameAndType: func(name, typ string) paging.Fetcher[types.ResourceRecordSet] {
			return provider.GatedFetcher(p.gate, func(creds credentials.Credentials) paging.Fetcher[types.ResourceRecordSet] {
				return p.recordFetcher(zoneID, &startKey{name: name, typ: typ}, withCredentials(p.requirement, creds))
			})
		},
		Normalizer: recordSetNormalizer{},
		NotFound:   isNoSuchHostedZone,
		PutFunc: func(ctx context.Context, rrset model.ResourceRecordSet) error {
			return p.put(ctx, zoneID, rrset)
		},
		DeleteFunc: func(ctx context.Context, name, typ string) error {
			return p.delete(ctx, zoneID, name, typ)
		},
	}, nil
}

func isNoSuchHostedZone(err error) bool {
	var nsz *types.NoSuchHostedZone
	return errors.As(err, &nsz) || paging.IsNotFound(err)
}

// startKey limits a listing to one name and type. Route53 lists sets in
// name then type order, so the listing ends at the first set past the key.
type startKey struct {
	name string
	typ  string
}

func (k *startKey) matches(rrset types.ResourceRecordSet) bool {
	return recordSetName(rrset) == k.name && string(rrset.Type) == k.typ
}

// Route53 needs three values to resume a listing. They travel in the cursor
// as a query string.
func encodeCursor(out *route53.ListResourceRecordSetsOutput) paging.Cursor {
	if !out.IsTruncated || out.NextRecordName == nil {
		return paging.NoCursor
	}
	v := url.Values{}
	v.Set("name", aws.ToString(out.NextRecordName))
	if out.NextRecordType != "" {
		v.Set("type", string(out.NextRecordType))
	}
	if out.NextRecordIdentifier != nil {
		v.Set("identifier", aws.ToString(out.NextRecordIdentifier))
	}
	return paging.Cursor(v.Encode())
}

func decodeCursor(cursor paging.Cursor, input *route53.ListResourceRecordSetsInput) error {
	v, err := url.ParseQuery(string(cursor))
	if err != nil || v.Get("name") == "" {
		return fmt.Errorf("route53: invalid cursor %q", cursor)
	}
	input.StartRecordName = aws.String(v.Get("name"))
	input.StartRecordType = types.RRType(v.Get("type"))
	if v.Has("identifier") {
		input.StartRecordIdentifier = aws.String(v.Get("identifier"))
	}
	return nil
}

func (p *route53Provider) recordFetcher(zoneID string, start *startKey, optFns []func(*route53.Options)) paging.Fetcher[types.ResourceRecordSet] {
	return func(ctx context.Context, cursor paging.Cursor) (paging.Page[types.ResourceRecordSet], error) {
		input := &route53.ListResourceRecordSetsInput{
			HostedZoneId: aws.String(zoneID),
			MaxItems:     p.maxItems(),
		}
		if cursor != paging.NoCursor {
			if err := decodeCursor(cursor, input); err != nil {
				return paging.Page[types.ResourceRecordSet]{}, err
			}
		} else if start != nil {
			input.StartRecordName = aws.String(start.name)
			input.StartRecordType = types.RRType(start.typ)
		}
		out, err := p.client.ListResourceRecordSets(ctx, input, optFns...)
		if err != nil {
			if !isNoSuchHostedZone(err) {
				p.logger.Sugar().Errorw("could not list resource record sets", "zone", zoneID, "err", err)
			}
			return paging.Page[types.ResourceRecordSet]{}, fmt.Errorf("could not list resource record sets in %s: %w", zoneID, err)
		}
		page := paging.Page[types.ResourceRecordSet]{Items: out.ResourceRecordSets, Next: encodeCursor(out)}
		if start == nil {
			return page, nil
		}
		if out.NextRecordName != nil && !start.matches(types.ResourceRecordSet{Name: out.NextRecordName, Type: out.NextRecordType}) {
			page.Next = paging.NoCursor
		}
		items := make([]types.ResourceRecordSet, 0, len(out.ResourceRecordSets))
		for _, rrset := range out.ResourceRecordSets {
			if !start.matches(rrset) {
				page.Next = paging.NoCursor
				break
			}
			items = append(items, rrset)
		}
		page.Items = items
		return page, nil
	}
}

// recordSetName undoes Route53's octal escaping of wildcards.
func recordSetName(rrset types.ResourceRecordSet) string {
	return strings.ReplaceAll(aws.ToString(rrset.Name), `\052`, "*")
}

type recordSetNormalizer struct{}

func (recordSetNormalizer) Key(rrset types.ResourceRecordSet) model.Key {
	return model.Key{
		Name:      recordSetName(rrset),
		Type:      string(rrset.Type),
		Qualifier: aws.ToString(rrset.SetIdentifier),
	}
}

func (n recordSetNormalizer) Apply(b *model.Builder, rrset types.ResourceRecordSet) {
	key := n.Key(rrset)
	b.Name(key.Name).Type(key.Type).Qualifier(key.Qualifier)
	if rrset.TTL != nil {
		b.TTL(uint32(*rrset.TTL))
	}
	for _, rr := range rrset.ResourceRecords {
		value := aws.ToString(rr.Value)
		rdata, err := model.ParseRecordData(key.Type, value)
		if err != nil {
			rdata = model.RecordData{Type: key.Type, Fields: map[string]any{"rdata": value}}
		}
		b.Add(rdata)
	}
	if rrset.Weight != nil {
		b.Profile("weight", *rrset.Weight)
	}
	if rrset.Region != "" {
		b.Profile("region", string(rrset.Region))
	}
	if rrset.Failover != "" {
		b.Profile("failover", string(rrset.Failover))
	}
	if geo := rrset.GeoLocation; geo != nil {
		location := make(map[string]any)
		if geo.ContinentCode != nil {
			location["continentCode"] = *geo.ContinentCode
		}
		if geo.CountryCode != nil {
			location["countryCode"] = *geo.CountryCode
		}
		if geo.SubdivisionCode != nil {
			location["subdivisionCode"] = *geo.SubdivisionCode
		}
		b.Profile("geo", location)
	}
	if alias := rrset.AliasTarget; alias != nil {
		b.Profile("alias", map[string]any{
			"dnsName":              aws.ToString(alias.DNSName),
			"hostedZoneId":         aws.ToString(alias.HostedZoneId),
			"evaluateTargetHealth": alias.EvaluateTargetHealth,
		})
	}
}

func (p *route53Provider) put(ctx context.Context, zoneID string, rrset model.ResourceRecordSet) error {
	optFns, err := p.callOptions(ctx)
	if err != nil {
		return err
	}
	change, err := p.dnsChange(types.ChangeActionUpsert, rrset)
	if err != nil {
		return err
	}
	return p.changeBatch(ctx, zoneID, []types.Change{change}, optFns)
}

// delete removes every set with the given name and type. Route53 only
// deletes exact copies of existing sets, so they are listed first.
func (p *route53Provider) delete(ctx context.Context, zoneID, name, typ string) error {
	optFns, err := p.callOptions(ctx)
	if err != nil {
		return err
	}
	fetch := paging.EmptyOnNotFound(p.recordFetcher(zoneID, &startKey{name: name, typ: typ}, optFns), isNoSuchHostedZone)
	existing, err := paging.Collect[types.ResourceRecordSet](paging.NewIterator(ctx, fetch))
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		p.logger.Sugar().Debugw("nothing to delete", "zone", zoneID, "name", name, "type", typ)
		return nil
	}
	changes := make([]types.Change, 0, len(existing))
	for i := range existing {
		changes = append(changes, types.Change{
			Action:            types.ChangeActionDelete,
			ResourceRecordSet: &existing[i],
		})
	}
	return p.changeBatch(ctx, zoneID, changes, optFns)
}

func (p *route53Provider) changeBatch(ctx context.Context, zoneID string, changes []types.Change, optFns []func(*route53.Options)) error {
	_, err := p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch:  &types.ChangeBatch{Changes: changes},
	}, optFns...)
	if err != nil {
		p.logger.Sugar().Errorw("could not change resource record sets", "zone", zoneID, "err", err)
		return fmt.Errorf("could not change resource record sets in %s: %w", zoneID, err)
	}
	return nil
}

func (p *route53Provider) dnsChange(action types.ChangeAction, rrset model.ResourceRecordSet) (types.Change, error) {
	resourceRecords := make([]types.ResourceRecord, 0, len(rrset.Records))
	for _, rdata := range rrset.Records {
		resourceRecords = append(resourceRecords, types.ResourceRecord{Value: aws.String(rdata.String())})
	}
	set := &types.ResourceRecordSet{
		Name:            aws.String(rrset.Name),
		Type:            types.RRType(rrset.Type),
		ResourceRecords: resourceRecords,
	}
	if rrset.TTL != nil {
		set.TTL = aws.Int64(int64(*rrset.TTL))
	}
	if rrset.Qualifier != "" {
		set.SetIdentifier = aws.String(rrset.Qualifier)
	}
	for key, value := range rrset.Profile {
		switch key {
		case "weight":
			weight, ok := toInt64(value)
			if !ok {
				return types.Change{}, fmt.Errorf("route53: weight of %s must be a number, got %T", rrset.Key(), value)
			}
			set.Weight = aws.Int64(weight)
		case "region":
			set.Region = types.ResourceRecordSetRegion(fmt.Sprint(value))
		case "failover":
			set.Failover = types.ResourceRecordSetFailover(fmt.Sprint(value))
		default:
			p.logger.Sugar().Warnw("ignoring unsupported profile", "key", rrset.Key().String(), "profile", key)
		}
	}
	return types.Change{Action: action, ResourceRecordSet: set}, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}
