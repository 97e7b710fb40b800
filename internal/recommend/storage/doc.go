// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package storage persists trained recommendation models in BadgerDB.
//
// Trained models are expensive to rebuild, so the latent factor and neural
// scorers snapshot every model they publish and reload a young enough
// snapshot on start. A snapshot is the model gob-encoded, gzip-compressed
// and checksummed, stored next to a small JSON metadata record.
//
// # Keys
//
// Every save gets the next generation number for its name:
//
//	model:meta:{name}:{generation}   JSON Metadata
//	model:data:{name}:{generation}   gzip(gob(model))
//
// Generations are zero-padded so lexical order is numeric order. Load reads
// the newest generation; older ones are kept up to Options.Retain and pruned
// after every save.
//
// # Integrity
//
// Metadata carries the SHA-256 of the uncompressed gob payload. Load
// recomputes it and refuses to decode on mismatch, so a torn or corrupted
// value never reaches a scorer.
//
// # Usage
//
//	store, err := storage.Open(storage.Options{Path: "/data/models"}, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	meta, err := store.Save(ctx, "latent", 1, model)
//	...
//	var restored algorithms.LatentModel
//	meta, err = store.Load(ctx, "latent", &restored)
//
// Store also implements algorithms.SnapshotStore through SaveSnapshot and
// LoadSnapshot.
package storage
