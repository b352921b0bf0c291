// Package archive exports a user's delta log to S3-compatible object
// storage as newline-delimited JSON.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/nibblelog/internal/common"
	"github.com/dmitrijs2005/nibblelog/internal/logging"
	"github.com/dmitrijs2005/nibblelog/internal/server/models"
)

// Ranger reads deltas in server order.
type Ranger interface {
	Range(ctx context.Context, userID string, afterSeq int64, limit int) ([]*models.Delta, error)
}

// ObjectPutter is the subset of the S3 client the exporter uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config addresses the bucket deltas are exported to.
type S3Config struct {
	User     string
	Password string
	Bucket   string
	Region   string
	Endpoint string
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Client builds a path-style client for MinIO or AWS with static
// credentials.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.User, c.Password, "")),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

type Result struct {
	Key      string
	Count    int
	FirstSeq int64
	LastSeq  int64
}

type Exporter struct {
	deltas    Ranger
	s3        ObjectPutter
	bucket    string
	pageLimit int
	log       logging.Logger
}

func NewExporter(deltas Ranger, s3 ObjectPutter, bucket string, pageLimit int, log logging.Logger) *Exporter {
	if pageLimit <= 0 {
		pageLimit = common.DefaultPullPageLimit
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Exporter{
		deltas:    deltas,
		s3:        s3,
		bucket:    bucket,
		pageLimit: pageLimit,
		log:       log.With("module", "archive"),
	}
}

// ObjectKey names the archive object holding seqs first..last of userID.
func ObjectKey(userID string, first, last int64) string {
	return fmt.Sprintf("users/%s/deltas-%d-%d.ndjson", userID, first, last)
}

// Export uploads every delta of userID after afterSeq as one NDJSON object.
// An empty range uploads nothing and returns a Result with Count 0.
func (e *Exporter) Export(ctx context.Context, userID string, afterSeq int64) (*Result, error) {
	var (
		buf bytes.Buffer
		res = &Result{}
		enc = json.NewEncoder(&buf)
	)

	cursor := afterSeq
	for {
		page, err := e.deltas.Range(ctx, userID, cursor, e.pageLimit)
		if err != nil {
			return nil, fmt.Errorf("read deltas: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, d := range page {
			if err := enc.Encode(d); err != nil {
				return nil, err
			}
			if res.Count == 0 {
				res.FirstSeq = d.ServerSeq
			}
			res.LastSeq = d.ServerSeq
			res.Count++
		}
		cursor = res.LastSeq
	}

	if res.Count == 0 {
		e.log.Info(ctx, "nothing to archive", "user_id", userID, "after_seq", afterSeq)
		return res, nil
	}

	res.Key = ObjectKey(userID, res.FirstSeq, res.LastSeq)
	_, err := e.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(res.Key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", res.Key, err)
	}

	e.log.Info(ctx, "archived", "user_id", userID, "key", res.Key, "count", res.Count)
	return res, nil
}
