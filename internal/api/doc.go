// Package api exposes the store, the inference gateway, and image storage
// as a loopback HTTP JSON surface for the desktop UI.
//
// # Overview
//
// The server binds every operation to one route:
//
//	GET  /api/health                          probe inference server
//	POST /api/prompt                          single prompt
//	POST /api/prompt/image                    prompt with image attachment
//	POST /api/prompt/history                  prompt with prior turns
//	GET  /api/models                          installed models
//	POST /api/conversations                   create conversation
//	GET  /api/conversations                   list conversations
//	GET  /api/conversations/{id}/messages     messages in order
//	POST /api/messages                        save text message
//	POST /api/messages/image                  save message with image metadata
//	POST /api/images                          store base64 image blob
//	GET  /api/images?path=...                 fetch blob as base64
//	POST /api/cleanup                         sweep orphaned images
//
// # Error Rendering
//
// Collaborators return structured errors; this package is the only place
// they become strings. Gateway sentinels map to status codes: unavailable
// is 503, timeout is 504, vision-unsupported is 422 with code
// "vision_unsupported", any other upstream status is 502. Store failures
// are 500 with a "database error:" prefix.
//
// # Rendering
//
// Assistant messages additionally carry their content converted from
// Markdown to HTML in the "rendered" field, so the UI displays replies
// without a Markdown stack of its own.
package api
