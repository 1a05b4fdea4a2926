package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/e1732a364fed/edgerelay/machine"
	"github.com/e1732a364fed/edgerelay/utils"
)

var (
	configFileName string
	startPProf     bool
	startMProf     bool
	showVersion    bool

	listenAddr string
	uuidStr    string
)

const (
	defaultLogFile = "edgerelay_log"
	defaultConfFn  = "server.toml"
)

func init() {
	flag.StringVar(&configFileName, "c", defaultConfFn, "config file name")
	flag.BoolVar(&startPProf, "pp", false, "cpu pprof")
	flag.BoolVar(&startMProf, "mp", false, "memory pprof")
	flag.BoolVar(&showVersion, "v", false, "print version and exit")

	flag.StringVar(&listenAddr, "listen", "", "listen address, overrides the config file")
	flag.StringVar(&uuidStr, "uuid", "", "user uuid, overrides the config file and "+machine.UUIDEnvName)

	flag.IntVar(&utils.LogLevel, "ll", utils.DefaultLL, "log level,0=debug, 1=info, 2=warning, 3=error, 4=fatal")
	flag.StringVar(&utils.LogOutFileName, "lf", defaultLogFile, "output file for log; If empty, no log file will be used.")
}

func main() {
	os.Exit(mainFunc())
}

func mainFunc() (result int) {
	var m *machine.M

	defer func() {
		if r := recover(); r != nil {
			stackStr := string(debug.Stack())
			if ce := utils.CanLogErr("Captured panic!"); ce != nil {
				ce.Write(zap.Any("err:", r), zap.String("stacktrace", stackStr))
			}
			//zap 会把多行的 stack 转义, 所以再用 log 打印一次
			log.Println("panic captured!", r, "\n", stackStr)

			result = -3

			if m != nil {
				m.Stop()
			}
		}
	}()

	flag.Parse()

	printVersion(os.Stdout)
	if showVersion {
		return 0
	}

	if startPProf {
		p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
		defer p.Stop()
	}
	if startMProf {
		//若不使用 NoShutdownHook, 则 我们ctrl+c退出时不会产生 pprof文件
		p := profile.Start(profile.MemProfile, profile.MemProfileRate(1), profile.NoShutdownHook)
		defer p.Stop()
	}

	var conf machine.Conf
	var loadConfigErr error

	if utils.GetFilePath(configFileName) == "" {
		if utils.IsFlagGiven("c") {
			log.Printf("-c provided but %q doesn't exist", configFileName)
			return -1
		}
		log.Printf("No -c provided and default %q doesn't exist, using flags and env only", defaultConfFn)
	} else {
		conf, loadConfigErr = machine.LoadConfFile(configFileName)
		if loadConfigErr != nil {
			log.Println("can not load config file", configFileName, loadConfigErr)
			return -1
		}
	}

	conf.App.Setup()
	conf.ApplyEnv()
	if listenAddr != "" {
		conf.Server.Listen = listenAddr
	}
	if uuidStr != "" {
		conf.Server.UUID = uuidStr
	}

	utils.InitLog()
	defer utils.ZapLogger.Info("Program exited")

	if ce := utils.CanLogInfo("Program started"); ce != nil {
		ce.Write(zap.String("config", configFileName), zap.Int("loglevel", utils.LogLevel))
	}

	var err error
	m, err = machine.New(conf)
	if err != nil {
		if ce := utils.CanLogErr("invalid config, exit now"); ce != nil {
			ce.Write(zap.Error(err))
		} else {
			log.Println("invalid config, exit now", err)
		}
		return -1
	}

	if err = m.Start(); err != nil {
		if ce := utils.CanLogErr("can not start, exit now"); ce != nil {
			ce.Write(zap.Error(err))
		} else {
			log.Println("can not start, exit now", err)
		}
		return -1
	}

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	<-osSignals

	utils.ZapLogger.Info("got exit signal, stopping")
	m.Stop()
	m.PrintAllState(os.Stdout)

	return 0
}
