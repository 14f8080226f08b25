// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 responder 提供 HTTP/1.1 响应序列化能力：每个连接构造一个
Responder，设置头部、Cookie 与正文后调用一次 Send，将完整响应
写入任意 io.Writer。

# 线格式

Send 依次写出状态行、按首次插入顺序排列的头部、按添加顺序排列的
Set-Cookie 行、空行以及原样正文。设置了正文时，Content-Length
由实际正文长度计算并覆盖调用方设置的同名头部。整个响应在池化
缓冲区中组装，并以单次 Write 写出。

# Cookie 编码

EncodeCookie 按固定顺序渲染属性：Domain、Path、Max-Age 或
Expires（后设置者生效）、HttpOnly、Secure，最后是可选的 SameSite。
Expires 始终以 GMT 的 HTTP-date 格式输出，负的 Max-Age 输出为 0。

# 错误语义

  - 重复调用 Send 返回 RESPONSE_SENT，且不再写出任何字节。
  - Send 之后再调用 SetField/SetBody/SetCookie 会 panic。
  - 写入失败或短写返回 IO_ERROR，不做重试。
  - 写超时（os.ErrDeadlineExceeded）返回可重试的 TIMEOUT。
*/
package responder
