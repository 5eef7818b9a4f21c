package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/sapslaj/rrsets/credentials"
)

// Route53 is a global service; the SDK still wants a region to sign with.
const defaultRegion = "us-east-1"

func defaultAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	if region == "" {
		region = defaultRegion
	}
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}

func defaultR53Client(ctx context.Context, region string) (*route53.Client, error) {
	cfg, err := defaultAWSConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("could not get default AWS config: %w", err)
	}
	return route53.NewFromConfig(cfg), nil
}

// withCredentials overrides the client's credential chain for a single call.
// Anonymous credentials leave the default chain in place. Map credentials
// carrying a session token match both shapes; the longer one wins.
func withCredentials(requirement credentials.Requirement, creds credentials.Credentials) []func(*route53.Options) {
	var params []string
	for _, shape := range requirement {
		_, ok := credentials.Requirement{shape}.Match(creds)
		if ok && len(shape.Parameters) > len(params) {
			params = shape.Parameters
		}
	}
	if len(params) < 2 {
		return nil
	}
	values := credentials.Values(creds, params)
	accessKey, secretKey, sessionToken := values[0], values[1], ""
	if len(values) > 2 {
		sessionToken = values[2]
	}
	return []func(*route53.Options){
		func(o *route53.Options) {
			o.Credentials = awscreds.NewStaticCredentialsProvider(accessKey, secretKey, sessionToken)
		},
	}
}
