package service

import (
	"context"
	"log/slog"

	"shahid/internal/audit"
	"shahid/pkg/attrs"
	"shahid/pkg/requestcontext"
)

// metadataKeys are the attribute names mirrored into audit event metadata.
// Everything else in the attribute list is logged only.
var metadataKeys = []string{"banned_ip", "identifier", "failures", "locked_until", "class", "ip", "user_id"}

// logAudit writes one log line and mirrors it as a security audit event. Call
// sites state each fact once in the attribute list; the reason and metadata
// are pulled out of it by key.
func (s *Service) logAudit(ctx context.Context, level slog.Level, action audit.Action, msg string, attrList ...any) {
	attrList = append(attrList, "event", string(action), "log_type", "audit")
	s.logger.Log(ctx, level, msg, attrList...)

	s.emit(ctx, audit.Event{
		Action:   action,
		ActorID:  requestcontext.UserID(ctx),
		Reason:   attrs.ExtractString(attrList, "reason"),
		Metadata: extractMetadata(attrList),
	})
}

func extractMetadata(attrList []any) map[string]string {
	metadata := make(map[string]string)
	for _, key := range metadataKeys {
		if v := attrs.ExtractString(attrList, key); v != "" {
			metadata[key] = v
		}
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}
