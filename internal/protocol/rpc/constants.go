// Package rpc defines the message types and frame layout of the coordinator
// channel.
//
// Every exchange is a single request frame followed by a single response
// frame on the same connection. The channel is single-flight: the session
// layer serializes callers, so frames never interleave.
package rpc

// Message types. The coordinator dispatches on this byte; responses echo it.
const (
	// MsgResolveOpen resolves a path plus access intent into the backing
	// name the tool should open, its size, and a close token. The response
	// carries both tables' new sizes.
	MsgResolveOpen byte = iota + 1

	// MsgCheckRemapping is a cheap staleness probe: the response carries only
	// the file table's new size.
	MsgCheckRemapping

	// MsgListDirectory asks the coordinator to append a directory's listing
	// to the directory table stream.
	MsgListDirectory

	// MsgResolveFullName resolves a path (with optional loader search-path
	// hints) into its real and virtual names without opening it.
	MsgResolveFullName

	// MsgCloseFile reports a closed handle (with delete-on-close, rename,
	// and written-mapping information) back to the coordinator.
	MsgCloseFile

	// MsgGetWrittenFiles streams one page of metadata for files the
	// coordinator has finished materializing since the last drain.
	MsgGetWrittenFiles

	// MsgUpdateTables refreshes both table sizes and piggybacks the first
	// written-files page.
	MsgUpdateTables

	// MsgLog forwards a log line to the coordinator's session log.
	MsgLog
)

// Name returns the wire name of a message type for logs and metrics labels.
func Name(msgType byte) string {
	switch msgType {
	case MsgResolveOpen:
		return "resolve_open"
	case MsgCheckRemapping:
		return "check_remapping"
	case MsgListDirectory:
		return "list_directory"
	case MsgResolveFullName:
		return "resolve_full_name"
	case MsgCloseFile:
		return "close_file"
	case MsgGetWrittenFiles:
		return "get_written_files"
	case MsgUpdateTables:
		return "update_tables"
	case MsgLog:
		return "log"
	default:
		return "unknown"
	}
}
