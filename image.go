package artpub

import "context"

// ImageDir is the container directory, relative to the chapters, that holds
// embedded images.
const ImageDir = "images"

// ResolvedImage is an image fetched and registered for embedding.
type ResolvedImage struct {
	// ID is unique within a run and stable for its lifetime.
	ID          string
	MediaType   string
	Data        []byte
	OriginalRef string
	URL         string
}

// Href returns the path of the image relative to the chapter documents.
func (img *ResolvedImage) Href() string {
	return ImageDir + "/" + img.ID + MediaTypeExtension(img.MediaType)
}

// MediaTypeExtension returns the file extension for an accepted image media type.
func MediaTypeExtension(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".bin"
}

// ImageFailure records an image that could not be resolved.
type ImageFailure struct {
	Ref string
	URL string
	Err error
}

// ImageResolver fetches and registers the images referenced by a page.
type ImageResolver interface {
	// ResolveAll resolves refs against baseURL and returns the successfully
	// resolved images keyed by ref, plus one failure per unresolved ref.
	// Resolving a ref seen earlier in the run returns the same image.
	ResolveAll(ctx context.Context, refs []string, baseURL string, session *Session) (map[string]*ResolvedImage, []ImageFailure)
}
