// Package access 实现待审核账号的路由放行策略。
// 判定逻辑是纯函数，真正的跳转由 handler 层的中间件完成。
package access

import "strings"

// 待审核账号可以访问的导航目标。
// 前缀项允许公开的作品详情与艺术家主页。
var allowedExact = []string{
	"/",
	"/welcome",
	"/auth",
}

var allowedPrefixes = []string{
	"/obras/",
	"/artists/",
}

// IsRouteAllowed 判断待审核账号是否可以访问 path。
// 按精确路径或路径前缀匹配固定白名单。
func IsRouteAllowed(path string) bool {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return false
	}

	for _, exact := range allowedExact {
		if trimmed == exact {
			return true
		}
	}

	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}

	return false
}

// blockedMessages 按前缀从长到短排列，BlockedMessage 取第一个命中项。
var blockedMessages = []struct {
	prefix  string
	message string
}{
	{"/admin/obras/edit", "Sua conta precisa ser aprovada antes de editar obras."},
	{"/admin/new-obra", "Sua conta precisa ser aprovada antes de criar obras."},
	{"/admin/analytics", "Sua conta precisa ser aprovada antes de acessar as estatísticas."},
	{"/my-gallery", "Sua conta precisa ser aprovada antes de gerenciar sua galeria."},
	{"/my-profile", "Sua conta precisa ser aprovada antes de editar seu perfil."},
	{"/admin", "Sua conta precisa ser aprovada antes de acessar a área administrativa."},
}

// FallbackBlockedMessage 是未命中任何已知前缀时的通用提示。
const FallbackBlockedMessage = "Sua conta ainda está em análise. Aguarde a aprovação de um administrador."

// BlockedMessage 为被拦截的导航目标选择说明文案。
// 仅用于提示，不参与放行判定。
func BlockedMessage(path string) string {
	trimmed := strings.TrimSpace(path)

	best := ""
	message := FallbackBlockedMessage
	for _, entry := range blockedMessages {
		if strings.HasPrefix(trimmed, entry.prefix) && len(entry.prefix) > len(best) {
			best = entry.prefix
			message = entry.message
		}
	}

	return message
}
