package logging

import "log/slog"

// Common field names for consistent logging across the pipeline.
const (
	FieldRunID    = "run_id"
	FieldOffset   = "offset"
	FieldSrcIP    = "src_ip"
	FieldDstPort  = "dst_port"
	FieldUsername = "username"
	FieldLogPath  = "log_path"
	FieldDuration = "duration_ms"
	FieldError    = "error"
)

// RunID returns a slog attribute for the ingestion run ID.
func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

// Offset returns a slog attribute for a byte offset in the source log.
func Offset(off int64) slog.Attr {
	return slog.Int64(FieldOffset, off)
}

// SrcIP returns a slog attribute for the source IP address.
func SrcIP(ip string) slog.Attr {
	return slog.String(FieldSrcIP, ip)
}

// DstPort returns a slog attribute for the destination port.
func DstPort(port int) slog.Attr {
	return slog.Int(FieldDstPort, port)
}

// LogPath returns a slog attribute for the source log file path.
func LogPath(path string) slog.Attr {
	return slog.String(FieldLogPath, path)
}

// Err returns a slog attribute for an error value.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
