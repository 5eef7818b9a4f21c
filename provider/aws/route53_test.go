package aws

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
)

type mockRoute53Client struct {
	PageSize int
	Sets     []types.ResourceRecordSet
	Zones    [][]types.HostedZone

	ListHostedZonesCalls []struct {
		Input  *route53.ListHostedZonesInput
		OptFns []func(*route53.Options)
	}

	ListResourceRecordSetsCalls []struct {
		Input  *route53.ListResourceRecordSetsInput
		OptFns []func(*route53.Options)
	}
	ListResourceRecordSetsError error

	ChangeResourceRecordSetsCalls []struct {
		Input  *route53.ChangeResourceRecordSetsInput
		OptFns []func(*route53.Options)
	}
	ChangeResourceRecordSetsError error
}

func (m *mockRoute53Client) ListHostedZones(
	ctx context.Context,
	params *route53.ListHostedZonesInput,
	optFns ...func(*route53.Options),
) (*route53.ListHostedZonesOutput, error) {
	m.ListHostedZonesCalls = append(m.ListHostedZonesCalls, struct {
		Input  *route53.ListHostedZonesInput
		OptFns []func(*route53.Options)
	}{
		Input:  params,
		OptFns: optFns,
	})
	page := 0
	if params.Marker != nil {
		page = len(aws.ToString(params.Marker))
	}
	out := &route53.ListHostedZonesOutput{HostedZones: m.Zones[page]}
	if page+1 < len(m.Zones) {
		out.IsTruncated = true
		out.NextMarker = aws.String(strings.Repeat("x", page+1))
	}
	return out, nil
}

func setKey(rrset types.ResourceRecordSet) [3]string {
	return [3]string{aws.ToString(rrset.Name), string(rrset.Type), aws.ToString(rrset.SetIdentifier)}
}

func keyLess(a, b [3]string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// ListResourceRecordSets behaves like Route53: sets come back in key order
// starting at the requested key, and a truncated answer names the next one.
func (m *mockRoute53Client) ListResourceRecordSets(
	ctx context.Context,
	params *route53.ListResourceRecordSetsInput,
	optFns ...func(*route53.Options),
) (*route53.ListResourceRecordSetsOutput, error) {
	m.ListResourceRecordSetsCalls = append(m.ListResourceRecordSetsCalls, struct {
		Input  *route53.ListResourceRecordSetsInput
		OptFns []func(*route53.Options)
	}{
		Input:  params,
		OptFns: optFns,
	})
	if m.ListResourceRecordSetsError != nil {
		return nil, m.ListResourceRecordSetsError
	}
	start := 0
	if params.StartRecordName != nil {
		from := [3]string{aws.ToString(params.StartRecordName), string(params.StartRecordType), aws.ToString(params.StartRecordIdentifier)}
		for start < len(m.Sets) && keyLess(setKey(m.Sets[start]), from) {
			start++
		}
	}
	size := m.PageSize
	if size == 0 {
		size = len(m.Sets)
	}
	end := start + size
	if end > len(m.Sets) {
		end = len(m.Sets)
	}
	out := &route53.ListResourceRecordSetsOutput{
		MaxItems:           aws.Int32(int32(size)),
		ResourceRecordSets: m.Sets[start:end],
	}
	if end < len(m.Sets) {
		out.IsTruncated = true
		out.NextRecordName = m.Sets[end].Name
		out.NextRecordType = m.Sets[end].Type
		out.NextRecordIdentifier = m.Sets[end].SetIdentifier
	}
	return out, nil
}

func (m *mockRoute53Client) ChangeResourceRecordSets(
	ctx context.Context,
	params *route53.ChangeResourceRecordSetsInput,
	optFns ...func(*route53.Options),
) (*route53.ChangeResourceRecordSetsOutput, error) {
	m.ChangeResourceRecordSetsCalls = append(m.ChangeResourceRecordSetsCalls, struct {
		Input  *route53.ChangeResourceRecordSetsInput
		OptFns []func(*route53.Options)
	}{
		Input:  params,
		OptFns: optFns,
	})
	return &route53.ChangeResourceRecordSetsOutput{
		ChangeInfo: &types.ChangeInfo{
			Id:          aws.String(""),
			Status:      "PENDING",
			SubmittedAt: aws.Time(time.Now()),
		},
	}, m.ChangeResourceRecordSetsError
}

func exampleSets() []types.ResourceRecordSet {
	return []types.ResourceRecordSet{
		{
			Name: aws.String("\\052.example.com."),
			Type: types.RRTypeCname,
			TTL:  aws.Int64(60),
			ResourceRecords: []types.ResourceRecord{
				{Value: aws.String("www.example.com.")},
			},
		},
		{
			Name: aws.String("api.example.com."),
			Type: types.RRTypeA,
			TTL:  aws.Int64(60),
			ResourceRecords: []types.ResourceRecord{
				{Value: aws.String("192.0.2.10")},
			},
			SetIdentifier: aws.String("blue"),
			Weight:        aws.Int64(90),
		},
		{
			Name: aws.String("api.example.com."),
			Type: types.RRTypeA,
			TTL:  aws.Int64(60),
			ResourceRecords: []types.ResourceRecord{
				{Value: aws.String("192.0.2.11")},
			},
			SetIdentifier: aws.String("green"),
			Weight:        aws.Int64(10),
		},
		{
			Name: aws.String("www.example.com."),
			Type: types.RRTypeA,
			TTL:  aws.Int64(300),
			ResourceRecords: []types.ResourceRecord{
				{Value: aws.String("192.0.2.1")},
				{Value: aws.String("192.0.2.2")},
			},
		},
		{
			Name: aws.String("www.example.com."),
			Type: types.RRTypeTxt,
			TTL:  aws.Int64(300),
			ResourceRecords: []types.ResourceRecord{
				{Value: aws.String(`"v=spf1 -all"`)},
			},
		},
	}
}

var staticKeys = credentials.ListCredentials{"AKIDEXAMPLE", "wJalrXUtnFEMI"}

func newMockRoute53Provider(client Route53Client, config Route53ProviderConfig, supplier credentials.Supplier) *route53Provider {
	return newRoute53Provider(client, zap.NewExample(), config, supplier)
}

func resolvedCredentials(t *testing.T, optFns []func(*route53.Options)) aws.Credentials {
	t.Helper()
	o := route53.Options{}
	for _, fn := range optFns {
		fn(&o)
	}
	require.NotNil(t, o.Credentials, "no credentials were set on the call")
	creds, err := o.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	return creds
}

func TestRoute53_Iterator(t *testing.T) {
	tests := map[string]int{
		"single page":     0,
		"page per set":    1,
		"uneven pages":    2,
		"exact multiple":  5,
		"larger than set": 50,
	}
	want := []string{
		"*.example.com./CNAME",
		"api.example.com./A/blue",
		"api.example.com./A/green",
		"www.example.com./A",
		"www.example.com./TXT",
	}
	for name, pageSize := range tests {
		t.Run(name, func(t *testing.T) {
			mockClient := &mockRoute53Client{PageSize: pageSize, Sets: exampleSets()}
			p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
			api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
			require.NoError(t, err)
			assert.Empty(t, mockClient.ListResourceRecordSetsCalls)

			rrsets, err := paging.Collect(api.Iterator(context.Background()))
			require.NoError(t, err)
			got := make([]string, 0, len(rrsets))
			for _, rrset := range rrsets {
				got = append(got, rrset.Key().String())
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("unexpected record sets (-want +got):\n%s", diff)
			}
			for _, call := range mockClient.ListResourceRecordSetsCalls {
				assert.Equal(t, "Z2FDTNDATAQYW2", aws.ToString(call.Input.HostedZoneId))
			}
		})
	}
}

func TestRoute53_CursorChaining(t *testing.T) {
	mockClient := &mockRoute53Client{PageSize: 2, Sets: exampleSets()}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	_, err = paging.Collect(api.Iterator(context.Background()))
	require.NoError(t, err)

	require.Len(t, mockClient.ListResourceRecordSetsCalls, 3)
	assert.Nil(t, mockClient.ListResourceRecordSetsCalls[0].Input.StartRecordName)
	second := mockClient.ListResourceRecordSetsCalls[1].Input
	assert.Equal(t, "api.example.com.", aws.ToString(second.StartRecordName))
	assert.Equal(t, types.RRTypeA, second.StartRecordType)
	assert.Equal(t, "green", aws.ToString(second.StartRecordIdentifier))
	third := mockClient.ListResourceRecordSetsCalls[2].Input
	assert.Equal(t, "www.example.com.", aws.ToString(third.StartRecordName))
	assert.Equal(t, types.RRTypeTxt, third.StartRecordType)
	assert.Nil(t, third.StartRecordIdentifier)
}

func TestRoute53_Normalize(t *testing.T) {
	mockClient := &mockRoute53Client{Sets: exampleSets()}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	rrsets, err := paging.Collect(api.IterateByName(context.Background(), "api.example.com."))
	require.NoError(t, err)
	require.Len(t, rrsets, 2)
	want := model.NewBuilder().
		Name("api.example.com.").
		Type("A").
		Qualifier("blue").
		TTL(60).
		Add(model.AData("192.0.2.10")).
		Profile("weight", int64(90)).
		MustBuild()
	assert.True(t, want.Equal(rrsets[0]), "got %+v", rrsets[0])

	wildcard, err := api.GetByNameAndType(context.Background(), "*.example.com.", "CNAME")
	require.NoError(t, err)
	require.NotNil(t, wildcard)
	assert.Equal(t, []model.RecordData{model.CNAMEData("www.example.com.")}, wildcard.Records)
}

func TestRoute53_GetByNameAndType(t *testing.T) {
	mockClient := &mockRoute53Client{PageSize: 1, Sets: exampleSets()}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	rrset, err := api.GetByNameAndType(context.Background(), "www.example.com.", "A")
	require.NoError(t, err)
	require.NotNil(t, rrset)
	assert.Equal(t, []model.RecordData{model.AData("192.0.2.1"), model.AData("192.0.2.2")}, rrset.Records)

	require.Len(t, mockClient.ListResourceRecordSetsCalls, 1)
	input := mockClient.ListResourceRecordSetsCalls[0].Input
	assert.Equal(t, "www.example.com.", aws.ToString(input.StartRecordName))
	assert.Equal(t, types.RRTypeA, input.StartRecordType)
}

func TestRoute53_GetByNameAndType_StopsPastKey(t *testing.T) {
	mockClient := &mockRoute53Client{PageSize: 3, Sets: exampleSets()}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	rrset, err := api.GetByNameAndType(context.Background(), "api.example.com.", "AAAA")
	assert.NoError(t, err)
	assert.Nil(t, rrset)
	assert.Len(t, mockClient.ListResourceRecordSetsCalls, 1)
}

func TestRoute53_NoSuchHostedZone(t *testing.T) {
	mockClient := &mockRoute53Client{
		ListResourceRecordSetsError: &types.NoSuchHostedZone{Message: aws.String("No hosted zone found with ID: Z404")},
	}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
	api, err := p.RecordSetsInZone("Z404")
	require.NoError(t, err)

	rrsets, err := paging.Collect(api.Iterator(context.Background()))
	assert.NoError(t, err)
	assert.Empty(t, rrsets)

	rrset, err := api.GetByNameAndType(context.Background(), "www.example.com.", "A")
	assert.NoError(t, err)
	assert.Nil(t, rrset)
}

func TestRoute53_ListError(t *testing.T) {
	mockClient := &mockRoute53Client{ListResourceRecordSetsError: errors.New("throttled")}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	_, err = paging.Collect(api.Iterator(context.Background()))
	assert.EqualError(t, err, "could not list resource record sets in Z2FDTNDATAQYW2: throttled")
}

func TestRoute53_PerCallCredentials(t *testing.T) {
	mockClient := &mockRoute53Client{PageSize: 2, Sets: exampleSets()}
	supplier := credentials.Sequence(
		staticKeys,
		credentials.MapCredentials{
			"accessKey":    "ASIAEXAMPLE",
			"secretKey":    "secret",
			"sessionToken": "token",
		},
	)
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, supplier)
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	_, err = paging.Collect(api.Iterator(context.Background()))
	require.NoError(t, err)
	require.Len(t, mockClient.ListResourceRecordSetsCalls, 3)
	for _, call := range mockClient.ListResourceRecordSetsCalls {
		creds := resolvedCredentials(t, call.OptFns)
		assert.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
		assert.Equal(t, "wJalrXUtnFEMI", creds.SecretAccessKey)
		assert.Empty(t, creds.SessionToken)
	}

	_, err = api.GetByNameAndType(context.Background(), "www.example.com.", "A")
	require.NoError(t, err)
	creds := resolvedCredentials(t, mockClient.ListResourceRecordSetsCalls[3].OptFns)
	assert.Equal(t, "ASIAEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "token", creds.SessionToken)

	_, err = paging.Collect(api.Iterator(context.Background()))
	assert.EqualError(
		t,
		err,
		"no credentials supplied. route53 requires one of the following forms: "+
			"when type is accessKey: accessKey, secretKey; session: accessKey, secretKey, sessionToken",
	)
	assert.Len(t, mockClient.ListResourceRecordSetsCalls, 4)
}

func TestRoute53_DefaultCredentials(t *testing.T) {
	mockClient := &mockRoute53Client{Sets: exampleSets()}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{DefaultCredentials: true}, nil)
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	_, err = paging.Collect(api.Iterator(context.Background()))
	require.NoError(t, err)
	require.Len(t, mockClient.ListResourceRecordSetsCalls, 1)
	assert.Empty(t, mockClient.ListResourceRecordSetsCalls[0].OptFns)
}

func TestRoute53_Zones(t *testing.T) {
	mockClient := &mockRoute53Client{
		Zones: [][]types.HostedZone{
			{
				{Id: aws.String("/hostedzone/Z2FDTNDATAQYW2"), Name: aws.String("example.com."), CallerReference: aws.String("")},
			},
			{
				{Id: aws.String("/hostedzone/Z3M3LMPEXAMPLE"), Name: aws.String("example.net."), CallerReference: aws.String("")},
			},
		},
	}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{PageSize: 1}, credentials.Static(staticKeys))

	zones, err := paging.Collect(p.Zones().Iterator(context.Background()))
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, "Z2FDTNDATAQYW2", zones[0].ID)
	assert.Equal(t, "example.net.", zones[1].Name)

	require.Len(t, mockClient.ListHostedZonesCalls, 2)
	assert.Nil(t, mockClient.ListHostedZonesCalls[0].Input.Marker)
	assert.NotNil(t, mockClient.ListHostedZonesCalls[1].Input.Marker)
	assert.Equal(t, int32(1), aws.ToInt32(mockClient.ListHostedZonesCalls[1].Input.MaxItems))
}

func TestRoute53_Put(t *testing.T) {
	mockClient := &mockRoute53Client{}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	rrset := model.NewBuilder().
		Name("test-host.example.com.").
		Type("A").
		Qualifier("blue").
		TTL(69).
		Add(model.AData("192.0.2.1")).
		Profile("weight", 20).
		MustBuild()
	require.NoError(t, api.Put(context.Background(), rrset))

	require.Len(
		t,
		mockClient.ChangeResourceRecordSetsCalls,
		1,
		"mockRoute53Client.ChangeResourceRecordSets was never called",
	)
	call := mockClient.ChangeResourceRecordSetsCalls[0]
	assert.Equal(t, "AKIDEXAMPLE", resolvedCredentials(t, call.OptFns).AccessKeyID)
	changes := call.Input.ChangeBatch.Changes
	require.Len(t, changes, 1)
	change := changes[0]
	assert.Equal(t, types.ChangeActionUpsert, change.Action)
	assert.Equal(t, int64(69), aws.ToInt64(change.ResourceRecordSet.TTL))
	assert.Equal(t, "test-host.example.com.", aws.ToString(change.ResourceRecordSet.Name))
	assert.Equal(t, types.RRTypeA, change.ResourceRecordSet.Type)
	assert.Equal(t, "blue", aws.ToString(change.ResourceRecordSet.SetIdentifier))
	assert.Equal(t, int64(20), aws.ToInt64(change.ResourceRecordSet.Weight))
	require.Len(t, change.ResourceRecordSet.ResourceRecords, 1)
	assert.Equal(t, "192.0.2.1", aws.ToString(change.ResourceRecordSet.ResourceRecords[0].Value))
}

func TestRoute53_Put_BadWeight(t *testing.T) {
	mockClient := &mockRoute53Client{}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	rrset := model.NewBuilder().
		Name("test-host.example.com.").
		Type("A").
		Add(model.AData("192.0.2.1")).
		Profile("weight", "heavy").
		MustBuild()
	assert.Error(t, api.Put(context.Background(), rrset))
	assert.Empty(t, mockClient.ChangeResourceRecordSetsCalls)
}

func TestRoute53_DeleteByNameAndType(t *testing.T) {
	mockClient := &mockRoute53Client{PageSize: 1, Sets: exampleSets()}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Static(staticKeys))
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)

	require.NoError(t, api.DeleteByNameAndType(context.Background(), "api.example.com.", "A"))

	require.Len(t, mockClient.ChangeResourceRecordSetsCalls, 1)
	changes := mockClient.ChangeResourceRecordSetsCalls[0].Input.ChangeBatch.Changes
	require.Len(t, changes, 2)
	for i, qualifier := range []string{"blue", "green"} {
		assert.Equal(t, types.ChangeActionDelete, changes[i].Action)
		assert.Equal(t, qualifier, aws.ToString(changes[i].ResourceRecordSet.SetIdentifier))
	}

	require.NoError(t, api.DeleteByNameAndType(context.Background(), "missing.example.com.", "A"))
	assert.Len(t, mockClient.ChangeResourceRecordSetsCalls, 1)
}

func TestRoute53_WritesAskForCredentialsEachCall(t *testing.T) {
	mockClient := &mockRoute53Client{PageSize: 1, Sets: exampleSets()}
	p := newMockRoute53Provider(mockClient, Route53ProviderConfig{}, credentials.Sequence(
		staticKeys,
		credentials.ListCredentials{"AKIDROTATED", "s3cr3t"},
	))
	api, err := p.RecordSetsInZone("Z2FDTNDATAQYW2")
	require.NoError(t, err)
	rrset := model.NewBuilder().
		Name("test-host.example.com.").
		Type("A").
		Add(model.AData("192.0.2.1")).
		MustBuild()

	require.NoError(t, api.Put(context.Background(), rrset))
	require.NoError(t, api.DeleteByNameAndType(context.Background(), "api.example.com.", "A"))
	require.Len(t, mockClient.ChangeResourceRecordSetsCalls, 2)
	assert.Equal(t, "AKIDEXAMPLE", resolvedCredentials(t, mockClient.ChangeResourceRecordSetsCalls[0].OptFns).AccessKeyID)
	assert.Equal(t, "AKIDROTATED", resolvedCredentials(t, mockClient.ChangeResourceRecordSetsCalls[1].OptFns).AccessKeyID)

	err = api.Put(context.Background(), rrset)
	assert.ErrorIs(t, err, credentials.ErrNoCredentials)
	assert.Len(t, mockClient.ChangeResourceRecordSetsCalls, 2)
}

func TestRoute53_CursorRoundTrip(t *testing.T) {
	out := &route53.ListResourceRecordSetsOutput{
		IsTruncated:          true,
		NextRecordName:       aws.String("a&b=c.example.com."),
		NextRecordType:       types.RRTypeSrv,
		NextRecordIdentifier: aws.String("eu west"),
	}
	input := &route53.ListResourceRecordSetsInput{}
	require.NoError(t, decodeCursor(encodeCursor(out), input))
	assert.Equal(t, "a&b=c.example.com.", aws.ToString(input.StartRecordName))
	assert.Equal(t, types.RRTypeSrv, input.StartRecordType)
	assert.Equal(t, "eu west", aws.ToString(input.StartRecordIdentifier))

	assert.Equal(t, paging.NoCursor, encodeCursor(&route53.ListResourceRecordSetsOutput{}))
	assert.Error(t, decodeCursor("%%%", input))
}

func TestRoute53Metadata(t *testing.T) {
	assert.Equal(t, "route53", Route53.Name())
	assert.Equal(t, "https://route53.amazonaws.com", Route53.URL())
	assert.Len(t, Route53.CredentialRequirement(), 2)
}
