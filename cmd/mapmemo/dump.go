package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/streamingfast/dstore"
	"github.com/streamingfast/mapmemo/memoizer"
	"go.uber.org/zap"
)

const dumpObjectName = "documents"

type dumpedDocument struct {
	ID       string         `json:"id"`
	Hash     string         `json:"hash,omitempty"`
	Document map[string]any `json:"document"`
}

// dump writes every document of snapshot, sorted by identifier, as a single
// JSONL object of store.
func dump(ctx context.Context, store dstore.Store, snapshot *memoizer.Snapshot[string, string]) error {
	ids := snapshot.Identifiers()
	sort.Strings(ids)

	buf := bytes.NewBuffer(nil)
	for _, id := range ids {
		document, err := snapshot.Get(id)
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}

		line := dumpedDocument{ID: id, Document: document}
		if hash, found := snapshot.Hash(id); found {
			line.Hash = hash.String()
		}

		data, err := jsonlEncode(line)
		if err != nil {
			return fmt.Errorf("dump %q: %w", id, err)
		}
		buf.Write(data)
	}

	if err := store.WriteObject(ctx, dumpObjectName, buf); err != nil {
		return fmt.Errorf("write dump object: %w", err)
	}

	zlog.Info("canonical documents dumped", zap.String("store", store.BaseURL().String()), zap.Int("document_count", len(ids)))
	return nil
}

func jsonlEncode(value any) ([]byte, error) {
	buf := []byte{}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	buf = append(buf, data...)
	buf = append(buf, byte('\n'))
	return buf, nil
}
