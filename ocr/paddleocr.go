package ocr

// DefaultPaddleOCRCommand runs the bundled helper that wraps PaddleOCR with
// the japan model set. Override with PADDLE_OCR_COMMAND.
const DefaultPaddleOCRCommand = "python -m daisho_engines.paddle_ocr"

// NewPaddleOCR builds the PaddleOCR engine, the fallback backend for
// horizontal UI text where manga-ocr over-segments.
func NewPaddleOCR(command string) Engine {
	if command == "" {
		command = DefaultPaddleOCRCommand
	}
	return newSidecarEngine(EnginePaddleOCR, command)
}
