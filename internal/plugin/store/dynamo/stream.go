package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	streamav "github.com/aws/aws-sdk-go-v2/feature/dynamodbstreams/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/charmbracelet/log"

	"github.com/wildtrack/mediatag-service/internal/model"
	registrystore "github.com/wildtrack/mediatag-service/internal/registry/store"
)

const defaultPollInterval = 2 * time.Second

// MediaEvents tails the media table's DynamoDB stream. The table must have
// been created with NEW_AND_OLD_IMAGES stream view, which the tables command
// does. Tailing starts at LATEST: events written before the feed was opened
// are not replayed.
func (s *Store) MediaEvents(ctx context.Context) (<-chan registrystore.MediaEvent, error) {
	arn, err := s.streamARN(ctx, s.mediaTable)
	if err != nil {
		return nil, err
	}
	out := make(chan registrystore.MediaEvent, 128)
	go s.tail(ctx, arn, func(rec streamtypes.Record) {
		ev := registrystore.MediaEvent{Type: registrystore.EventType(rec.EventName)}
		if len(rec.Dynamodb.NewImage) > 0 {
			ev.New = &model.MediaRecord{}
			if err := streamav.UnmarshalMap(rec.Dynamodb.NewImage, ev.New); err != nil {
				log.Warn("Dynamo stream: skipping undecodable media image", "table", s.mediaTable, "error", err)
				return
			}
		}
		if len(rec.Dynamodb.OldImage) > 0 {
			ev.Old = &model.MediaRecord{}
			if err := streamav.UnmarshalMap(rec.Dynamodb.OldImage, ev.Old); err != nil {
				log.Warn("Dynamo stream: skipping undecodable media image", "table", s.mediaTable, "error", err)
				return
			}
		}
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}, func() { close(out) })
	return out, nil
}

// UserEvents tails the user table's stream the same way.
func (s *Store) UserEvents(ctx context.Context) (<-chan registrystore.UserEvent, error) {
	arn, err := s.streamARN(ctx, s.userTable)
	if err != nil {
		return nil, err
	}
	out := make(chan registrystore.UserEvent, 128)
	go s.tail(ctx, arn, func(rec streamtypes.Record) {
		ev := registrystore.UserEvent{Type: registrystore.EventType(rec.EventName)}
		if len(rec.Dynamodb.NewImage) > 0 {
			ev.New = &model.UserSubscription{}
			if err := streamav.UnmarshalMap(rec.Dynamodb.NewImage, ev.New); err != nil {
				log.Warn("Dynamo stream: skipping undecodable user image", "table", s.userTable, "error", err)
				return
			}
		}
		if len(rec.Dynamodb.OldImage) > 0 {
			ev.Old = &model.UserSubscription{}
			if err := streamav.UnmarshalMap(rec.Dynamodb.OldImage, ev.Old); err != nil {
				log.Warn("Dynamo stream: skipping undecodable user image", "table", s.userTable, "error", err)
				return
			}
		}
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}, func() { close(out) })
	return out, nil
}

func (s *Store) streamARN(ctx context.Context, table string) (string, error) {
	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err != nil {
		return "", &registrystore.BackendError{Op: "describe table", Err: err}
	}
	if out.Table == nil || out.Table.LatestStreamArn == nil || *out.Table.LatestStreamArn == "" {
		return "", fmt.Errorf("dynamo: table %q has no stream enabled", table)
	}
	return *out.Table.LatestStreamArn, nil
}

// tail polls every open shard of the stream on a fixed interval and hands each
// record to handle in shard order. New shards are picked up on the next
// DescribeStream refresh; closed shards are dropped once their iterator is
// exhausted.
func (s *Store) tail(ctx context.Context, streamARN string, handle func(streamtypes.Record), done func()) {
	defer done()

	interval := s.pollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	iterators := map[string]string{}
	finished := map[string]bool{}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.refreshShards(ctx, streamARN, iterators, finished); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("Dynamo stream: shard refresh failed", "stream", streamARN, "error", err)
		}
		for shardID, iterator := range iterators {
			recs, err := s.streams.GetRecords(ctx, &dynamodbstreams.GetRecordsInput{
				ShardIterator: aws.String(iterator),
			})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("Dynamo stream: read failed", "stream", streamARN, "shard", shardID, "error", err)
				continue
			}
			for _, rec := range recs.Records {
				handle(rec)
			}
			if recs.NextShardIterator == nil {
				delete(iterators, shardID)
				finished[shardID] = true
				continue
			}
			iterators[shardID] = *recs.NextShardIterator
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Store) refreshShards(ctx context.Context, streamARN string, iterators map[string]string, finished map[string]bool) error {
	var lastShardID *string
	for {
		out, err := s.streams.DescribeStream(ctx, &dynamodbstreams.DescribeStreamInput{
			StreamArn:             aws.String(streamARN),
			ExclusiveStartShardId: lastShardID,
		})
		if err != nil {
			return err
		}
		for _, shard := range out.StreamDescription.Shards {
			shardID := aws.ToString(shard.ShardId)
			if shardID == "" || finished[shardID] {
				continue
			}
			if _, ok := iterators[shardID]; ok {
				continue
			}
			iterOut, err := s.streams.GetShardIterator(ctx, &dynamodbstreams.GetShardIteratorInput{
				StreamArn:         aws.String(streamARN),
				ShardId:           shard.ShardId,
				ShardIteratorType: streamtypes.ShardIteratorTypeLatest,
			})
			if err != nil {
				return err
			}
			if iterOut.ShardIterator != nil {
				iterators[shardID] = *iterOut.ShardIterator
			}
		}
		if out.StreamDescription.LastEvaluatedShardId == nil {
			return nil
		}
		lastShardID = out.StreamDescription.LastEvaluatedShardId
	}
}
