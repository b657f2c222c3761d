// Package s3test provides S3 buckets for tests: on an in-process
// gofakes3 server by default, or on the endpoint named by
// MERKSTORE_TEST_S3_ENDPOINT, using the usual AWS_* credentials.
package s3test

import (
	"net/http/httptest"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// EndpointEnv names the variable selecting a real S3-compatible endpoint.
const EndpointEnv = "MERKSTORE_TEST_S3_ENDPOINT"

// New returns a client and a new empty bucket that is emptied and
// removed when t finishes.
func New(t testing.TB) (*s3.S3, string) {
	t.Helper()
	config := &aws.Config{S3ForcePathStyle: aws.Bool(true)}
	if endpoint := os.Getenv(EndpointEnv); endpoint != "" {
		config.Endpoint = aws.String(endpoint)
		config.Region = aws.String(envOr("AWS_REGION", "us-east-1"))
		config.Credentials = credentials.NewEnvCredentials()
	} else {
		server := httptest.NewServer(gofakes3.New(s3mem.New()).Server())
		t.Cleanup(server.Close)
		config.Endpoint = aws.String(server.URL)
		config.Region = aws.String("us-east-1")
		config.DisableSSL = aws.Bool(true)
		config.Credentials = credentials.NewStaticCredentials("test-key", "test-secret", "")
	}
	sess, err := session.NewSession(config)
	if err != nil {
		t.Fatalf("s3 session: %v", err)
	}
	client := s3.New(sess)

	bucket := "merkstore-test-" + uuid.NewString()
	if _, err := client.CreateBucket(&s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("create bucket %s: %v", bucket, err)
	}
	t.Cleanup(func() {
		if err := removeBucket(client, bucket); err != nil {
			t.Logf("remove bucket %s: %v", bucket, err)
		}
	})
	return client, bucket
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func removeBucket(client *s3.S3, bucket string) error {
	var deleteErr error
	err := client.ListObjectsV2Pages(&s3.ListObjectsV2Input{Bucket: aws.String(bucket)},
		func(page *s3.ListObjectsV2Output, last bool) bool {
			if len(page.Contents) == 0 {
				return true
			}
			ids := make([]*s3.ObjectIdentifier, len(page.Contents))
			for i, o := range page.Contents {
				ids[i] = &s3.ObjectIdentifier{Key: o.Key}
			}
			_, deleteErr = client.DeleteObjects(&s3.DeleteObjectsInput{
				Bucket: aws.String(bucket),
				Delete: &s3.Delete{Objects: ids},
			})
			return deleteErr == nil
		})
	if err != nil {
		return err
	}
	if deleteErr != nil {
		return deleteErr
	}
	_, err = client.DeleteBucket(&s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	return err
}
