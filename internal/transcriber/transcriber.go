package transcriber

import "context"

// Result is one recognition update from the streaming channel. Interim
// results carry IsFinal=false and may be revised by later updates.
type Result struct {
	Text      string
	IsFinal   bool
	Speaker   *int
	StartTime *float64
}

type ResultReceiver interface {
	OnResult(r Result)
	// OnUtteranceEnd signals that the speaker finished an utterance. It may
	// arrive before the final result it belongs to has been delivered.
	OnUtteranceEnd()
	OnError(err error)
}

type StreamWriter interface {
	Write(pcm []byte) error
	Close() error
}

type Transcriber interface {
	StartStreaming(ctx context.Context, sessionID, language string, receiver ResultReceiver) (StreamWriter, error)
}
