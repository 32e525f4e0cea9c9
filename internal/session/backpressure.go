package session

// BackpressureLimits caps the audio buffered while the transcription
// channel is not yet ready. All three caps are inclusive: a value exactly
// at the limit is accepted, only exceeding it rejects.
type BackpressureLimits struct {
	MaxChunks     int
	MaxChunkBytes int
	MaxTotalBytes int
}

type RejectReason string

const (
	RejectChunkCountLimit RejectReason = "chunk-count-limit"
	RejectChunkSizeLimit  RejectReason = "chunk-size-limit"
	RejectTotalSizeLimit  RejectReason = "total-size-limit"
)

type BufferDecision struct {
	CanBuffer bool
	Reason    RejectReason
}

// CanBuffer decides whether one more audio chunk may be buffered. Checks
// run in a fixed order and the first failing check wins. Pure function;
// callers need no synchronization.
func CanBuffer(incomingBytes, pendingChunks, pendingBytes int, limits BackpressureLimits) BufferDecision {
	if pendingChunks >= limits.MaxChunks {
		return BufferDecision{Reason: RejectChunkCountLimit}
	}
	if incomingBytes > limits.MaxChunkBytes {
		return BufferDecision{Reason: RejectChunkSizeLimit}
	}
	if pendingBytes+incomingBytes > limits.MaxTotalBytes {
		return BufferDecision{Reason: RejectTotalSizeLimit}
	}
	return BufferDecision{CanBuffer: true}
}
