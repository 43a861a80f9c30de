package whatsapp

import (
	"net/url"
	"strings"
)

// DefaultPlaceholderBase is prefixed to the escaped product name when no image exists.
const DefaultPlaceholderBase = "https://via.placeholder.com/300x300?text="

// ImageSource names where a resolved image URL came from.
type ImageSource string

const (
	ImageSourceDirect      ImageSource = "image_url"
	ImageSourceAdditional  ImageSource = "additional_image_urls"
	ImageSourceCDN         ImageSource = "image_cdn_urls"
	ImageSourceImages      ImageSource = "images"
	ImageSourcePlaceholder ImageSource = "placeholder"
)

// ImageResolver picks a usable image URL for a raw product.
type ImageResolver struct {
	placeholderBase string
}

// NewImageResolver builds a resolver. An empty base uses DefaultPlaceholderBase.
func NewImageResolver(placeholderBase string) *ImageResolver {
	if strings.TrimSpace(placeholderBase) == "" {
		placeholderBase = DefaultPlaceholderBase
	}
	return &ImageResolver{placeholderBase: placeholderBase}
}

// Resolve returns the first non-blank image URL from image_url,
// additional_image_urls, image_cdn_urls and images, in that order, falling
// back to a placeholder. The result is never empty.
func (r *ImageResolver) Resolve(p RawProduct) (string, ImageSource) {
	if u := strings.TrimSpace(p.ImageURL); u != "" {
		return u, ImageSourceDirect
	}
	if u := firstNonBlank(p.AdditionalImageURLs); u != "" {
		return u, ImageSourceAdditional
	}
	if u := firstNonBlank(p.ImageCDNURLs); u != "" {
		return u, ImageSourceCDN
	}
	for _, img := range p.Images {
		if u := strings.TrimSpace(img.URL); u != "" {
			return u, ImageSourceImages
		}
	}
	return r.Placeholder(placeholderLabel(p)), ImageSourcePlaceholder
}

// Placeholder builds the placeholder URL for a product name.
func (r *ImageResolver) Placeholder(name string) string {
	return r.placeholderBase + strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

func placeholderLabel(p RawProduct) string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	if id := p.ExternalID(); id != "" {
		return id
	}
	return "Product"
}

func firstNonBlank(urls []string) string {
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			return u
		}
	}
	return ""
}
