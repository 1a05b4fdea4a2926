/*
Package proxy 决定一条隧道请求 如何到达它的目标.

一个请求可以用的出站方式 (Strategy) 有四种: 直连, 经过上游socks5, 经过中转主机, 以及 nat64 地址转换后直连.
ResolveStrategies 根据 mode 和 查询参数的顺序 给出要尝试的方式列表, Orchestrator 依次尝试, 直到某一种成功.

auto 模式下, 查询参数中 direct, s5, proxyip, nat64 这几个键 出现的先后顺序 就是尝试的先后顺序, 如

	/?mode=auto&nat64&direct=1

会先尝试 nat64, 再尝试 直连.
*/
package proxy
