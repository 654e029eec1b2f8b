package redisx

import "time"

const (
	// Latest snapshot document: tables:snapshot:latest -> {"type":"snapshot",...}
	KeySnapshotLatest = "tables:snapshot:latest"

	// Pub/sub channel every snapshot is published on.
	ChannelSnapshots = "tables:snapshots"

	// Dedup print job handling: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var TTLDedup = 48 * time.Hour
