package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
	StorageS3    = "s3"
)

// 文件上传相关常量
const (
	MimeImage       = "image/"
	MimeVideo       = "video/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
	MimeHTML        = "text/html; charset=utf-8"
)

const (
	MaxProfilePictureSize = 5 << 20
	MaxWebcamCaptureSize  = 20 << 20
)

var (
	AllowedImageExtensions  = []string{".jpg", ".jpeg", ".png", ".gif"}
	AllowedWebcamExtensions = []string{".jpg", ".jpeg", ".png", ".webm", ".mp4"}
)

// Unanswered 表示未作答的题目
const Unanswered = -1
