package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ContactModulePrefix 联系留言模块
	ContactModulePrefix = "contact"
	// AuthModulePrefix 登录鉴权模块
	AuthModulePrefix = "auth"

	// EntityMessages 留言列表实体
	EntityMessages = "messages"
	// EntitySession 登录会话实体
	EntitySession = "session"

	// KeyContactMessages 联系留言日志 (STRING, JSON数组, 最新在前)
	// 格式: app:contact:messages
	KeyContactMessages = AppPrefix + ":" + ContactModulePrefix + ":" + EntityMessages

	// KeyAuthSession 管理员会话 (STRING, 带TTL)
	// 格式: app:auth:session:{token}
	KeyAuthSession = AppPrefix + ":" + AuthModulePrefix + ":" + EntitySession + ":%s"
)
