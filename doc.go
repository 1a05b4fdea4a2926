/*
Package edgerelay provides a websocket tunneling endpoint that speaks vless.

# Structure 本项目结构

utils -> netLayer -> httpLayer -> advLayer -> proxy -> edgerelay -> configAdapter -> machine -> cmd/edgerelay

根项目 edgerelay 仅研究实际转发过程. 关于 出站方式的选择 请参考 proxy 子包的文档。

# Chain

一条连接的调用链 是 Handler.ServeConn -> vless.ParseRequest ->
{ udp: serveDNS -> dnsTunnel , tcp: proxy.Orchestrator.Dial -> netLayer.Relay }

入站是一个已经升级的 websocket (advLayer/ws), 第一条消息 (或 earlydata) 是 vless 请求头.
回给客户端的第一条消息 前面会加上两字节的 vless 回应头, 整个连接中 只加这一次.

udp 只支持 目标端口 53, 每个 dns 查询 通过 DNS over HTTPS 发出.

任何握手错误 或 所有出站方式都失败 时, 连接会被直接关闭, 不回应任何数据.
*/
package edgerelay
