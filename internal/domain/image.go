package domain

import "fmt"

// ImageFormat is the encoding of a raster on its way in or out of the pipeline.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatGIF  ImageFormat = "gif"
	FormatWebP ImageFormat = "webp"
)

const (
	DefaultMaxUploadSize = 32 << 20
	DefaultJPEGQuality   = 85
	// MaxCropOutputDim caps either side of the raster produced by a confirmed crop.
	MaxCropOutputDim = 2048
	// MaxSegmentInputDim caps either side of the raster fed to the matting model.
	MaxSegmentInputDim = 1024
)

// Logical storage folders for uploaded assets.
const (
	FolderProducts = "products"
	FolderBlogs    = "blogs"
	FolderStaging  = "staging"
)

// AspectRatio is a width:height selection constraint. A zero ratio means free-form.
type AspectRatio struct {
	W    int    `json:"w"`
	H    int    `json:"h"`
	Name string `json:"name"`
}

var (
	AspectFree      = AspectRatio{Name: "original"}
	AspectSquare    = AspectRatio{W: 1, H: 1, Name: "1:1"}
	AspectFourThree = AspectRatio{W: 4, H: 3, Name: "4:3"}
	AspectThreeTwo  = AspectRatio{W: 3, H: 2, Name: "3:2"}
	AspectWide      = AspectRatio{W: 16, H: 9, Name: "16:9"}
	AspectTall      = AspectRatio{W: 9, H: 16, Name: "9:16"}
)

// AspectPresets lists the selectable ratios in display order.
func AspectPresets() []AspectRatio {
	return []AspectRatio{
		AspectFree, AspectSquare, AspectFourThree,
		AspectThreeTwo, AspectWide, AspectTall,
	}
}

// AspectByName resolves a preset by its display name.
func AspectByName(name string) (AspectRatio, error) {
	for _, a := range AspectPresets() {
		if a.Name == name {
			return a, nil
		}
	}
	return AspectRatio{}, fmt.Errorf("unknown aspect ratio %q", name)
}

// Free reports whether the ratio is unconstrained.
func (a AspectRatio) Free() bool { return a.W == 0 || a.H == 0 }

// Value returns the ratio as a float; 0 for free-form.
func (a AspectRatio) Value() float64 {
	if a.Free() {
		return 0
	}
	return float64(a.W) / float64(a.H)
}

// CropRegion is a resolved selection in source-pixel coordinates.
type CropRegion struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Zoom   float64 `json:"zoom"`
	Aspect string  `json:"aspect"`
}

// WatermarkSpec describes the tiled text overlay.
type WatermarkSpec struct {
	Text    string  `json:"text"`
	Opacity float64 `json:"opacity"`
	Angle   float64 `json:"angle"`
}

// UploadedAsset is the durable result of a storage upload.
type UploadedAsset struct {
	URL         string `json:"url"`
	Folder      string `json:"folder"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ExtractedMetadata is the vision model's structured read of a part photo.
// CategoryID is filled by the matcher, never by the model.
type ExtractedMetadata struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	CategoryName string  `json:"categoryName"`
	CategoryID   string  `json:"-"`
}

// StageOptions are the per-run pipeline toggles, read once at confirm time.
type StageOptions struct {
	RemoveBackground bool   `json:"remove_background"`
	Watermark        bool   `json:"watermark"`
	AutoFill         bool   `json:"auto_fill"`
	WatermarkText    string `json:"watermark_text,omitempty"`
	Folder           string `json:"folder,omitempty"`
}
