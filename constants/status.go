package constants

// Stage names a step of page processing; stored verbatim on failures.
type Stage string

const (
	StageOpen   Stage = "open"   // document could not be opened or rasterized at all
	StageRender Stage = "render" // one page failed to rasterize
	StageOCR    Stage = "ocr"    // OCR engine failed for one page
	StageText   Stage = "text"   // embedded text could not be read
)
