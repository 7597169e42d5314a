package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/wolfman30/ig-lead-funnel/internal/leads"
)

// S3API is the subset of the S3 client used by ArchiveSink.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveSink writes each lead as a JSON object to S3, partitioned by creation date.
type ArchiveSink struct {
	client S3API
	bucket string
}

func NewArchiveSink(client S3API, bucket string) *ArchiveSink {
	return &ArchiveSink{client: client, bucket: bucket}
}

func (s *ArchiveSink) Name() string { return "s3_archive" }

func (s *ArchiveSink) Deliver(ctx context.Context, lead *leads.Lead) error {
	if s.client == nil || s.bucket == "" {
		return ErrSinkNotConfigured
	}

	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("fanout: marshal lead: %w", err)
	}

	key := ArchiveKey(lead)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("fanout: s3 put %s: %w", key, err)
	}
	return nil
}

// ArchiveKey is leads/v1/by-date/YYYY/MM/DD/<id>.json in UTC.
func ArchiveKey(lead *leads.Lead) string {
	t := lead.CreatedAt.UTC()
	return fmt.Sprintf("leads/v1/by-date/%d/%02d/%02d/%s.json", t.Year(), t.Month(), t.Day(), lead.ID)
}
