package async

// Executor
// 串行执行器。
//
// 提交的任务按提交顺序串行执行。InExecutor 用于判断当前协程是否为执行器协程，
// 以此决定是直接调用还是入队。
type Executor interface {
	// Execute
	// 提交一个任务。执行器已关闭时返回错误。
	Execute(task func()) (err error)
	// InExecutor
	// 当前协程是否为执行器协程。
	InExecutor() (ok bool)
}
