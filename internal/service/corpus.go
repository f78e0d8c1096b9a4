package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LoadCorpus builds the resource URL list the scorer ranks against.
// The static resources.urls list is the default; when a bucket is
// configured the list comes from an R2 bucket holding the lab's
// manuals and setup photos instead
func LoadCorpus() ([]string, error) {
	if viper.GetString("resources.bucket") == "" {
		return viper.GetStringSlice("resources.urls"), nil
	}

	return listBucketCorpus()
}

func listBucketCorpus() ([]string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("resources.access_key_id"),
			viper.GetString("resources.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("resources.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", viper.GetString("resources.account_id")))
		o.Region = "auto"
	})

	_, err = client.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	baseURL := strings.TrimSuffix(viper.GetString("resources.base_url"), "/")

	var urls []string
	var token *string

	for {
		out, err := client.ListObjectsV2(context.TODO(), &s3.ListObjectsV2Input{
			Bucket:            bucket,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list resource bucket, %w", err)
		}

		for _, obj := range out.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			urls = append(urls, baseURL+"/"+*obj.Key)
		}

		if out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}

	zap.L().Info("Resource corpus loaded from bucket", zap.Int("count", len(urls)))

	return urls, nil
}
