// Package store provides durable conversation history using SQLite.
//
// # Overview
//
// The store owns a single database file with two tables:
//
//   - conversations: id, created_at
//   - messages: id, conversation_id, role, content, input_type,
//     image_path, image_filename, image_size, timestamp
//
// Conversations and messages are append-only: nothing is ever updated or
// deleted through this package except orphaned image files on disk.
//
// # Ordering
//
// Conversations list most recent first (created_at descending). Messages
// within a conversation read back in ascending timestamp order; timestamps
// carry second granularity, so ties fall back to insertion order.
//
// # Schema Evolution
//
// Migrations are tracked in a schema_migrations table and applied in order
// on every open. Each step checks pragma_table_info before adding a column,
// so re-opening an already-migrated file is a no-op and a genuine ALTER
// failure (disk full, corruption) is still surfaced.
//
// # Concurrency
//
// SQLiteStore serializes all access to the shared connection with a mutex.
// The lock is held for single queries only, never across filesystem walks.
//
// # Image Files
//
// A message's image_path is a weak reference to a file under the images
// directory. CleanupOrphanedImages deletes files no message references; the
// sweep is best effort and returns a CleanupReport with removed and failed
// counts.
package store
