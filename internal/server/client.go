package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pallet-scanner/internal/entity"
)

// Client calls PalletService over an established connection.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// ScanReply is the decoded reply of a remote scan.
type ScanReply struct {
	RunID       uuid.UUID
	Strategy    string
	Records     []entity.PalletRecord
	Failures    []entity.Failure
	Inserted    int
	UploadError string
}

func (c *Client) Lookup(ctx context.Context, ids []string, opts ...grpc.CallOption) ([]entity.PalletRecord, error) {
	list := make([]any, len(ids))
	for i, id := range ids {
		list[i] = id
	}
	out, err := c.call(ctx, LookupMethod, map[string]any{"pallet_ids": list}, opts...)
	if err != nil {
		return nil, err
	}
	return decodeRecords(out.AsMap()["records"])
}

func (c *Client) Upload(ctx context.Context, recs []entity.PalletRecord, opts ...grpc.CallOption) (int, error) {
	out, err := c.call(ctx, UploadMethod, map[string]any{"records": recordsToList(recs)}, opts...)
	if err != nil {
		return 0, err
	}
	n, _ := out.AsMap()["inserted"].(float64)
	return int(n), nil
}

func (c *Client) Scan(ctx context.Context, paths []string, strategy string, upload bool, opts ...grpc.CallOption) (*ScanReply, error) {
	list := make([]any, len(paths))
	for i, p := range paths {
		list[i] = p
	}
	out, err := c.call(ctx, ScanMethod, map[string]any{"paths": list, "strategy": strategy, "upload": upload}, opts...)
	if err != nil {
		return nil, err
	}
	m := out.AsMap()
	reply := &ScanReply{}
	if s, ok := m["run_id"].(string); ok {
		if reply.RunID, err = uuid.Parse(s); err != nil {
			return nil, fmt.Errorf("decode run_id: %w", err)
		}
	}
	reply.Strategy, _ = m["strategy"].(string)
	reply.UploadError, _ = m["upload_error"].(string)
	if n, ok := m["inserted"].(float64); ok {
		reply.Inserted = int(n)
	}
	if reply.Records, err = decodeRecords(m["records"]); err != nil {
		return nil, err
	}
	failures, err := mapList(m["failures"], "failures")
	if err != nil {
		return nil, err
	}
	reply.Failures = make([]entity.Failure, 0, len(failures))
	for _, f := range failures {
		reply.Failures = append(reply.Failures, failureFromMap(f))
	}
	return reply, nil
}

func (c *Client) call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRecords(v any) ([]entity.PalletRecord, error) {
	items, err := mapList(v, "records")
	if err != nil {
		return nil, err
	}
	out := make([]entity.PalletRecord, 0, len(items))
	for i, item := range items {
		rec, err := recordFromMap(item)
		if err != nil {
			return nil, fmt.Errorf("decode records[%d]: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
