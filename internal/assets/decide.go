package assets

import "github.com/wisdom-in-a-nutshell/asset-cache/internal/fetch"

type action int

const (
	actionDownload action = iota
	actionRefresh
	actionKeep
	actionRevalidate
)

func (a action) String() string {
	switch a {
	case actionDownload:
		return "download"
	case actionRefresh:
		return "refresh"
	case actionKeep:
		return "keep"
	case actionRevalidate:
		return "revalidate"
	default:
		return "unknown"
	}
}

// decide 只看本地状态：缺文件必下载，强制刷新必重下，否则按是否校验决定保留或探测。
func decide(exists, refresh, validate bool) action {
	switch {
	case !exists:
		return actionDownload
	case refresh:
		return actionRefresh
	case !validate:
		return actionKeep
	default:
		return actionRevalidate
	}
}

// verdict 是探测后的结论。
type verdict struct {
	redownload bool
	signature  *fetch.Signature
	reason     string
}

// assess 根据探测结果决定是否重下：
// 探测失败保留旧文件与旧签名；没有旧签名时采用远端签名；字段冲突才判定过期。
func assess(prior *fetch.Signature, remote fetch.Signature, probeErr error) verdict {
	if probeErr != nil {
		return verdict{signature: prior, reason: "probe_failed"}
	}
	if prior == nil || prior.Empty() {
		sig := remote
		return verdict{signature: &sig, reason: "signature_adopted"}
	}
	if fetch.Stale(*prior, remote) {
		return verdict{redownload: true, reason: "stale"}
	}
	return verdict{signature: prior, reason: "fresh"}
}
