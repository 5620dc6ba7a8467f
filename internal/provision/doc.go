// Package provision implements the four stages that bring the agent up on a
// target:
//
//   - Sync mirrors the source tree with rsync -a --delete.
//   - Install runs the install command inside the destination directory.
//   - Configure patches the configuration file and writes it back only when
//     its bytes changed.
//   - Launch starts the agent detached, in a screen session or as a systemd
//     service, with the patched file and the system configuration file.
//
// All target access goes through transport.Conn. rsync itself runs on the
// control host through system.CommandExecutor.
package provision
