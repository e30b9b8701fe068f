// Package biz 提供故事书问答服务的业务逻辑层。
//
// 组件划分：
//   - Indexer: 嵌入文本并写入向量集合
//   - Ingestor: 摘要、关键词、分块与集合命名，调用 Indexer 完成上传
//   - HybridRetriever: 向量检索、摘要触发与关键词过滤的合并去重
//   - ConversationManager: 滚动摘要与最近消息窗口
//   - Workflow: 单回合问答状态机（检索、重排、组装、生成）
//   - ChatService: 会话解析、检查点读写与回合串行化
package biz
