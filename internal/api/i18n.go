package api

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// I18nManager 国际化管理器
type I18nManager struct {
	mu       sync.RWMutex
	messages map[string]map[string]string // lang -> key -> message
}

var defaultI18nManager *I18nManager

func init() {
	defaultI18nManager = NewI18nManager()
	defaultI18nManager.LoadMessages("en", map[string]string{
		"error.validation":        "Invalid input",
		"error.not_found":         "Resource not found",
		"error.conflict":          "Operation conflicts with the machine lifecycle",
		"error.invalid_field":     "Field cannot be updated",
		"error.storage":           "Internal server error",
		"error.bad_request":       "Bad request",
		"error.route_not_found":   "Route not found",
		"error.too_many_requests": "Too many requests",
		"success.created":         "Created successfully",
		"success.updated":         "Updated successfully",
		"success.deleted":         "Deleted successfully",
	})
	// 现场人员使用的葡萄牙语
	defaultI18nManager.LoadMessages("pt", map[string]string{
		"error.validation":        "Dados inválidos",
		"error.not_found":         "Recurso não encontrado",
		"error.conflict":          "Operação conflita com o ciclo de manutenção",
		"error.invalid_field":     "Campo não pode ser alterado",
		"error.storage":           "Erro interno do servidor",
		"error.bad_request":       "Requisição inválida",
		"error.route_not_found":   "Rota não encontrada",
		"error.too_many_requests": "Muitas requisições",
		"success.created":         "Criado com sucesso",
		"success.updated":         "Atualizado com sucesso",
		"success.deleted":         "Excluído com sucesso",
	})
	defaultI18nManager.LoadMessages("zh", map[string]string{
		"error.validation":        "输入无效",
		"error.not_found":         "资源未找到",
		"error.conflict":          "操作与维护生命周期冲突",
		"error.invalid_field":     "字段不允许修改",
		"error.storage":           "服务器内部错误",
		"error.bad_request":       "请求错误",
		"error.route_not_found":   "路由不存在",
		"error.too_many_requests": "请求过于频繁",
		"success.created":         "创建成功",
		"success.updated":         "更新成功",
		"success.deleted":         "删除成功",
	})
}

// NewI18nManager 创建国际化管理器
func NewI18nManager() *I18nManager {
	return &I18nManager{
		messages: make(map[string]map[string]string),
	}
}

// LoadMessages 加载语言消息
func (m *I18nManager) LoadMessages(lang string, messages map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[lang] = messages
}

// Translate 翻译消息,找不到时回退到英文,再回退到 key
func (m *I18nManager) Translate(lang, key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if message, ok := m.messages[lang][key]; ok {
		return message
	}
	if message, ok := m.messages["en"][key]; ok {
		return message
	}
	return key
}

// I18nMiddleware 国际化中间件
// 查询参数 lang 优先于 Accept-Language 头
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := "en"
		if queryLang := c.Query("lang"); queryLang != "" {
			lang = normalizeLanguage(queryLang)
		} else if headerLang := c.GetHeader("Accept-Language"); headerLang != "" {
			lang = parseAcceptLanguage(headerLang)
		}

		c.Set("language", lang)
		c.Next()
	}
}

// GetLanguage 从上下文获取语言
func GetLanguage(c *gin.Context) string {
	if lang, exists := c.Get("language"); exists {
		if l, ok := lang.(string); ok {
			return l
		}
	}
	return "en"
}

// T 翻译消息(使用默认管理器)
func T(c *gin.Context, key string) string {
	return defaultI18nManager.Translate(GetLanguage(c), key)
}

// normalizeLanguage 规范化语言代码, pt-BR -> pt, zh-CN -> zh
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, prefix := range []string{"pt", "zh", "en"} {
		if strings.HasPrefix(lang, prefix) {
			return prefix
		}
	}
	return lang
}

// parseAcceptLanguage 解析 Accept-Language 头,取第一个语言
func parseAcceptLanguage(header string) string {
	lang := strings.TrimSpace(strings.Split(header, ",")[0])
	if idx := strings.Index(lang, ";"); idx != -1 {
		lang = lang[:idx]
	}
	if lang == "" {
		return "en"
	}
	return normalizeLanguage(lang)
}
