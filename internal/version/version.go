// 包 version：构建时注入的版本信息（-ldflags "-X antmaps-api/internal/version.Commit=..."）
package version

// Commit 为构建提交哈希；本地构建时为 dev
var Commit = "dev"
