package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docrag/config"
)

// CurrentSchemaVersion is bumped whenever the archived chunk format changes.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo stores the schema version and the hash of the settings that
// shaped the archived chunks.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

func (a *BoltArchive) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				return fmt.Errorf("corrupt schema version: %w", err)
			}
		}
		info.ConfigHash = string(b.Get(keyConfigHash))
		return nil
	})
	return &info, err
}

func (a *BoltArchive) SetSchemaInfo(info *SchemaInfo) error {
	return a.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash hashes the settings that change chunk output. A different
// hash means archived chunk sets are stale.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		MaxCharacters int    `json:"max_characters"`
		CombineUnder  int    `json:"combine_under"`
		PDFToText     string `json:"pdftotext"`
	}{
		MaxCharacters: cfg.Chunking.MaxCharacters,
		CombineUnder:  cfg.Chunking.CombineUnder,
		PDFToText:     cfg.Partition.PDFToText,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// MigrationResult describes what Migrate will do.
type MigrationResult struct {
	NeedsClear bool
	OldVersion int
	NewVersion int
	Reason     string
}

func (a *BoltArchive) CheckMigration(cfg *config.Config) (*MigrationResult, error) {
	info, err := a.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{OldVersion: info.Version, NewVersion: CurrentSchemaVersion}
	switch {
	case info.Version == 0:
		result.Reason = "initializing schema version"
	case info.Version != CurrentSchemaVersion:
		result.NeedsClear = true
		result.Reason = fmt.Sprintf("schema changed from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.ConfigHash != ComputeConfigHash(cfg):
		result.NeedsClear = true
		result.Reason = "chunking configuration changed"
	}
	return result, nil
}

// Migrate clears stale chunk sets and records the current schema and config.
func (a *BoltArchive) Migrate(cfg *config.Config) (*MigrationResult, error) {
	result, err := a.CheckMigration(cfg)
	if err != nil {
		return nil, err
	}
	if result.NeedsClear {
		if err := a.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear archive: %w", err)
		}
	}
	err = a.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
	return result, err
}

// Open opens the archive at path and migrates it for cfg.
func Open(path string, cfg *config.Config) (*BoltArchive, *MigrationResult, error) {
	a, err := NewBoltArchive(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := a.Migrate(cfg)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, result, nil
}
