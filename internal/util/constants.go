package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 归档文件
const (
	ArchivePrefix      = "attempts"
	ArchiveContentType = "application/json"
)
