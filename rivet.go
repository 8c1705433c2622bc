// Package rivet 是异步事件驱动网络框架的通道流水线核心。
//
// 传输把入站事件交给流水线入口，事件在头哨兵的执行器上入队后沿链向尾部
// 传播；出站操作从用户侧沿链向头部传播，终止于头哨兵并交给传输，
// 每个出站操作返回一个许诺的未来。
//
// 默认情况下一条通道的全部上下文共享通道的事件循环，处理器路径整体
// 单协程化。为处理器指定辅助执行器组会在该处引入任务边界。
package rivet
