package editor

import (
	"encoding/base64"
	"strings"

	"ai-portfolio-go/internal/types"
)

const (
	msgInvalidImageType = "Please upload a valid image file (PNG, JPG, WebP)."
	msgImageTooLarge    = "Image size should not exceed 2MB."
)

// ImageFile 上传的图片。Size 为客户端声明的大小，取其与实际字节数的较大值
type ImageFile struct {
	ContentType string
	Size        int64
	Data        []byte
}

func (f *ImageFile) size() int64 {
	if n := int64(len(f.Data)); n > f.Size {
		return n
	}
	return f.Size
}

// EncodeImage 校验图片并编码为 data URI
func EncodeImage(f *ImageFile, maxBytes int64) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(f.ContentType))
	if !strings.HasPrefix(mime, "image/") {
		return "", types.NewValidationError("image", msgInvalidImageType)
	}
	if f.size() > maxBytes {
		return "", types.NewValidationError("image", msgImageTooLarge)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(f.Data), nil
}

// ImageTarget 图片字段位置：头像或某个项目的配图
type ImageTarget struct {
	Project bool
	Index   int
}

// ProfileImage 个人头像
func ProfileImage() ImageTarget { return ImageTarget{} }

// ProjectImage 第 index 个项目的配图
func ProjectImage(index int) ImageTarget { return ImageTarget{Project: true, Index: index} }
